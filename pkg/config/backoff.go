package config

import (
	"fmt"
	"time"
)

// BackoffConfig bounds the exponential backoff applied when a subcloud
// endpoint is unreachable (spec.md §4.4 step 5): "initial 30s, cap 15min".
type BackoffConfig struct {
	Initial time.Duration
	Cap     time.Duration
	Factor  float64
}

// Validate validates the backoff configuration.
func (c BackoffConfig) Validate() error {
	if c.Initial <= 0 {
		return fmt.Errorf("backoff.initial must be positive")
	}
	if c.Cap < c.Initial {
		return fmt.Errorf("backoff.cap must be >= backoff.initial")
	}
	if c.Factor <= 1 {
		return fmt.Errorf("backoff.factor must be > 1")
	}
	return nil
}

// DefaultBackoffConfig returns the 30s/15min bounds named in spec.md §4.4.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: 30 * time.Second,
		Cap:     15 * time.Minute,
		Factor:  2,
	}
}
