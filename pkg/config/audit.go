package config

import (
	"fmt"
	"time"
)

// AuditConfig configures the audit engine (spec.md §4.5), including the
// per-resource-type exclusion lists applied before diffing master and
// subcloud resource lists.
type AuditConfig struct {
	// Interval is the cadence of the periodic reconciliation sweep.
	Interval time.Duration

	// ExcludedUsers, ExcludedRoles and ExcludedProjects are names filtered
	// out of both the master and subcloud resource lists before diffing.
	ExcludedUsers    []string
	ExcludedRoles    []string
	ExcludedProjects []string
}

// Validate validates the audit configuration.
func (c AuditConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("audit.interval must be positive")
	}
	return nil
}

// DefaultAuditConfig returns the audit engine's default cadence and the
// built-in exclusion lists from spec.md §4.5.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Interval: 60 * time.Minute,
		ExcludedUsers: []string{
			"dbsync", "dcorch", "dcmanager", "heat_admin", "smapi", "fm",
		},
		ExcludedRoles: []string{
			"heat_stack_owner", "heat_stack_user", "ResellerAdmin",
		},
		ExcludedProjects: []string{},
	}
}

// CinderUserFor returns the per-region excluded "cinder<region>" service
// user name, which spec.md §4.5 calls out as a per-subcloud exclusion
// rather than a static one.
func CinderUserFor(region string) string {
	return fmt.Sprintf("cinder%s", region)
}
