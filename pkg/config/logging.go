package config

// LoggingConfig represents the configuration used by the logging package.
type LoggingConfig struct {
	// Development toggles human-readable console output instead of JSON.
	Development bool
}

// Validate validates the logging configuration.
func (c LoggingConfig) Validate() error {
	return nil
}
