// Package backoff implements the exponential backoff schedule spec.md
// §4.4 step 5 requires when a subcloud endpoint is unreachable: "initial
// 30s, cap 15min". The bounds are carried in a k8s.io/apimachinery
// wait.Backoff value, the one piece of the teacher's Kubernetes dependency
// closure this domain uses (see DESIGN.md); the delay itself is computed by
// NextDelay's own loop, not by wait.Backoff.Step.
package backoff

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/distributedcloud/identity-sync-engine/pkg/config"
)

// Policy computes the next-retry delay for a given attempt count.
type Policy struct {
	cfg config.BackoffConfig
}

// New builds a Policy from the engine's configured bounds.
func New(cfg config.BackoffConfig) Policy {
	return Policy{cfg: cfg}
}

// NextDelay returns the backoff delay for the given zero-based attempt
// number, capped at cfg.Cap.
func (p Policy) NextDelay(attempt int) time.Duration {
	b := wait.Backoff{
		Duration: p.cfg.Initial,
		Factor:   p.cfg.Factor,
		Steps:    attempt + 1,
		Cap:      p.cfg.Cap,
	}
	delay := b.Duration
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * b.Factor)
		if delay > p.cfg.Cap {
			delay = p.cfg.Cap
			break
		}
	}
	return delay
}

// NextAttemptAt returns the absolute time the next retry should happen.
func (p Policy) NextAttemptAt(now time.Time, attempt int) time.Time {
	return now.Add(p.NextDelay(attempt))
}
