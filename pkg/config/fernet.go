package config

import (
	"fmt"
	"time"
)

// FernetConfig configures the fernet key manager (spec.md §4.7).
type FernetConfig struct {
	// RotationInterval is how often the master's fernet key ring is
	// rotated. Defaults to 24h, matching the source's hourly-configurable
	// "key_rotation_interval * 3600" cadence.
	RotationInterval time.Duration
	// RotateCommand is the local key-rotation command invoked on each
	// rotation cycle.
	RotateCommand string
	// KeyRepoDir is the on-disk fernet key repository the rotate command
	// writes into (one file per key, named by key id), read back after a
	// successful rotation to build the {key_id: key_material} mapping
	// pushed to every subcloud.
	KeyRepoDir string
}

// Validate validates the fernet configuration.
func (c FernetConfig) Validate() error {
	if c.RotationInterval <= 0 {
		return fmt.Errorf("fernet.rotation_interval must be positive")
	}
	if c.RotateCommand == "" {
		return fmt.Errorf("fernet.rotate_command must not be empty")
	}
	if c.KeyRepoDir == "" {
		return fmt.Errorf("fernet.key_repo_dir must not be empty")
	}
	return nil
}

// DefaultFernetConfig returns the fernet manager's out-of-the-box tunables.
func DefaultFernetConfig() FernetConfig {
	return FernetConfig{
		RotationInterval: 24 * time.Hour,
		RotateCommand:    "/usr/bin/keystone-fernet-keys-rotate-active",
		KeyRepoDir:       "/etc/keystone/fernet-keys",
	}
}
