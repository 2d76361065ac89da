// Package config holds the typed configuration for the identity
// synchronization engine: operator-level flags, the engine's tunables
// (audit cadence, fernet rotation interval, retry backoff bounds, per-type
// exclusion lists) and the environment-bound secrets it needs.
package config

import "fmt"

// Config represents the main configuration for the identity sync engine.
type Config struct {
	// Operator-level configuration
	Operator OperatorConfig

	// Subsystem configurations
	Logging LoggingConfig
	Store   StoreConfig
	Engine  EngineConfig
	Fernet  FernetConfig
	Audit   AuditConfig
	Backoff BackoffConfig

	// Environment and runtime settings
	Environment EnvironmentConfig
}

// EnvironmentConfig represents environment-specific configuration bound
// from the process environment rather than flags.
type EnvironmentConfig struct {
	OpsgenieAPIKey  string `env:"OPSGENIE_API_KEY"`
	DbsyncAuthToken string `env:"DBSYNC_AUTH_TOKEN"`
}

// Validate validates the entire configuration.
func (c Config) Validate() error {
	if err := c.Operator.Validate(); err != nil {
		return fmt.Errorf("operator config validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config validation failed: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config validation failed: %w", err)
	}
	if err := c.Fernet.Validate(); err != nil {
		return fmt.Errorf("fernet config validation failed: %w", err)
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit config validation failed: %w", err)
	}
	if err := c.Backoff.Validate(); err != nil {
		return fmt.Errorf("backoff config validation failed: %w", err)
	}
	return nil
}
