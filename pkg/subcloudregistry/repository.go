package subcloudregistry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/store"
)

// ErrNotFound is returned when a region name has no registry record.
var ErrNotFound = errors.New("subcloudregistry: not found")

// Repository persists Subcloud registry records and their per-endpoint
// sync status against the local store (spec.md §3, §4.9).
type Repository struct {
	db     *store.DB
	logger logr.Logger
}

// NewRepository builds a Repository over db.
func NewRepository(db *store.DB, logger logr.Logger) *Repository {
	return &Repository{db: db, logger: logger.WithName("subcloudregistry")}
}

// Create registers a new subcloud record (spec.md §4.9 Create).
func (r *Repository) Create(ctx context.Context, s Subcloud) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcloud
			(region_name, software_version, management_state, availability,
			 management_subnet, management_start_ip, management_end_ip,
			 system_controller_gateway_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.RegionName, s.SoftwareVersion, s.ManagementState, s.Availability,
		s.ManagementSubnet, s.ManagementStartIP, s.ManagementEndIP, s.SystemControllerGatewayIP,
	)
	if err != nil {
		return fmt.Errorf("subcloudregistry: create: %w", err)
	}
	return nil
}

// Get fetches one subcloud record by region name.
func (r *Repository) Get(ctx context.Context, region string) (Subcloud, error) {
	var s Subcloud
	err := r.db.GetContext(ctx, &s, `
		SELECT region_name, software_version, management_state, availability,
		       management_subnet, management_start_ip, management_end_ip,
		       system_controller_gateway_ip, created_at
		FROM subcloud WHERE region_name = $1`, region)
	if errors.Is(err, sql.ErrNoRows) {
		return Subcloud{}, ErrNotFound
	}
	if err != nil {
		return Subcloud{}, fmt.Errorf("subcloudregistry: get %s: %w", region, err)
	}
	return s, nil
}

// List returns every registered subcloud, used to rebuild the generic
// sync manager's registry from durable state on startup (spec.md §4.8:
// "rebuilds from the durable subcloud list on startup").
func (r *Repository) List(ctx context.Context) ([]Subcloud, error) {
	rows := []Subcloud{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT region_name, software_version, management_state, availability,
		       management_subnet, management_start_ip, management_end_ip,
		       system_controller_gateway_ip, created_at
		FROM subcloud ORDER BY region_name`)
	if err != nil {
		return nil, fmt.Errorf("subcloudregistry: list: %w", err)
	}
	return rows, nil
}

// Delete removes a subcloud record; callers must confirm Deletable()
// first (spec.md §3: "destroyed by delete-subcloud only when unmanaged
// and offline").
func (r *Repository) Delete(ctx context.Context, region string) error {
	s, err := r.Get(ctx, region)
	if err != nil {
		return err
	}
	if !s.Deletable() {
		return fmt.Errorf("subcloudregistry: %s is not deletable (state=%s, availability=%s)", region, s.ManagementState, s.Availability)
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM subcloud WHERE region_name = $1`, region)
	if err != nil {
		return fmt.Errorf("subcloudregistry: delete %s: %w", region, err)
	}
	return nil
}

// UpdateManagementState transitions a subcloud's management state. A
// transition to unmanaged resets every endpoint status for this subcloud
// back to unknown (spec.md §3).
func (r *Repository) UpdateManagementState(ctx context.Context, region string, state ManagementState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subcloud SET management_state = $2 WHERE region_name = $1`, region, state)
	if err != nil {
		return fmt.Errorf("subcloudregistry: update management state: %w", err)
	}
	if state == ManagementUnmanaged {
		_, err = r.db.ExecContext(ctx, `
			UPDATE endpoint_status SET sync_status = $2 WHERE region_name = $1`,
			region, SyncStatusUnknown)
		if err != nil {
			return fmt.Errorf("subcloudregistry: reset endpoint status: %w", err)
		}
	}
	return nil
}

// UpdateAvailability records a subcloud's reachability transition.
func (r *Repository) UpdateAvailability(ctx context.Context, region string, availability Availability) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subcloud SET availability = $2 WHERE region_name = $1`, region, availability)
	if err != nil {
		return fmt.Errorf("subcloudregistry: update availability: %w", err)
	}
	return nil
}

// UpdateSoftwareVersion records a subcloud's reported software version
// (spec.md §4.8 update_subcloud_version).
func (r *Repository) UpdateSoftwareVersion(ctx context.Context, region, version string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subcloud SET software_version = $2 WHERE region_name = $1`, region, version)
	if err != nil {
		return fmt.Errorf("subcloudregistry: update software version: %w", err)
	}
	return nil
}

// endpointStatus fetches the sync status row, defaulting to Unknown when
// none exists yet.
func (r *Repository) endpointStatus(ctx context.Context, region, endpointType string) (SyncStatus, error) {
	var status SyncStatus
	err := r.db.GetContext(ctx, &status, `
		SELECT sync_status FROM endpoint_status WHERE region_name = $1 AND endpoint_type = $2`,
		region, endpointType)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncStatusUnknown, nil
	}
	if err != nil {
		return "", fmt.Errorf("subcloudregistry: endpoint status: %w", err)
	}
	return status, nil
}

// setEndpointStatus upserts the sync status row, applying the
// AcceptStatusUpdate invariant: status updates are silently dropped on
// unmanaged subclouds unless the incoming status is Unknown.
func (r *Repository) setEndpointStatus(ctx context.Context, region, endpointType string, status SyncStatus) error {
	s, err := r.Get(ctx, region)
	if err != nil {
		return err
	}
	if !s.AcceptStatusUpdate(status) {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO endpoint_status (region_name, endpoint_type, sync_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (region_name, endpoint_type) DO UPDATE SET sync_status = EXCLUDED.sync_status`,
		region, endpointType, status,
	)
	if err != nil {
		return fmt.Errorf("subcloudregistry: set endpoint status: %w", err)
	}
	return nil
}
