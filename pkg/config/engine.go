package config

import (
	"fmt"
	"time"
)

// EngineConfig configures the generic sync manager and the per-subcloud
// sync threads it owns.
type EngineConfig struct {
	// EndpointTypes is the set of endpoint types each subcloud engine
	// spawns a sync thread for. This module implements "identity" only.
	EndpointTypes []string
	// IdleSleep bounds how long a sync thread waits on its wakeup
	// condition before re-checking the queue on its own (spec.md §4.4.1).
	IdleSleep time.Duration
	// MasterRegionName is the region name of the system controller itself.
	// It is only checked to be non-empty; the master-side dbsync endpoint
	// is addressed by MasterDbsyncURL.
	MasterRegionName string
	// MasterDbsyncURL is the base URL of the system controller's own
	// dbsync endpoint.
	MasterDbsyncURL string
	// DbsyncPort is the port each subcloud's dbsync endpoint listens on,
	// reached at https://<management_start_ip>:<DbsyncPort>.
	DbsyncPort int
}

// Validate validates the engine configuration.
func (c EngineConfig) Validate() error {
	if len(c.EndpointTypes) == 0 {
		return fmt.Errorf("engine.endpoint_types must not be empty")
	}
	if c.IdleSleep <= 0 {
		return fmt.Errorf("engine.idle_sleep must be positive")
	}
	if c.MasterRegionName == "" {
		return fmt.Errorf("engine.master_region_name must not be empty")
	}
	if c.MasterDbsyncURL == "" {
		return fmt.Errorf("engine.master_dbsync_url must not be empty")
	}
	if c.DbsyncPort <= 0 {
		return fmt.Errorf("engine.dbsync_port must be positive")
	}
	return nil
}

// DefaultEngineConfig returns the engine's out-of-the-box tunables.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EndpointTypes:    []string{"identity"},
		IdleSleep:        30 * time.Second,
		MasterRegionName: "SystemController",
		MasterDbsyncURL:  "https://127.0.0.1:8118",
		DbsyncPort:       8118,
	}
}
