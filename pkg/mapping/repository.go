// Package mapping is the resource-mapping store of spec.md §4.2:
// (master_id, subcloud_region, subcloud_id) triples, looked up both ways,
// strongly consistent, at most one row per (master_id, region,
// resource_type) — P2 applied within each resource type.
package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/store"
)

// ErrNotFound is returned by the Get* methods when no mapping exists.
var ErrNotFound = errors.New("mapping: not found")

// Mapping is one resource-mapping row.
type Mapping struct {
	MasterID       string
	SubcloudRegion string
	ResourceType   string
	SubcloudID     string
}

// Repository persists Mappings.
type Repository struct {
	db     *store.DB
	logger logr.Logger
}

// NewRepository builds a Repository over db.
func NewRepository(db *store.DB, logger logr.Logger) *Repository {
	return &Repository{db: db, logger: logger.WithName("mapping")}
}

// Put creates or replaces the mapping for (masterID, region, resourceType),
// enforcing the at-most-one-row invariant (P2) via upsert.
func (r *Repository) Put(ctx context.Context, resourceType, masterID, region, subcloudID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_mapping (master_id, subcloud_region, resource_type, subcloud_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (master_id, subcloud_region, resource_type)
		DO UPDATE SET subcloud_id = EXCLUDED.subcloud_id`,
		masterID, region, resourceType, subcloudID,
	)
	if err != nil {
		return fmt.Errorf("mapping: put: %w", err)
	}
	return nil
}

// GetByMaster answers "have I already created this on that subcloud, and
// what's its id there?" (spec.md §4.2).
func (r *Repository) GetByMaster(ctx context.Context, resourceType, masterID, region string) (string, error) {
	var subcloudID string
	err := r.db.GetContext(ctx, &subcloudID, `
		SELECT subcloud_id FROM resource_mapping
		WHERE master_id = $1 AND subcloud_region = $2 AND resource_type = $3`,
		masterID, region, resourceType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mapping: get by master: %w", err)
	}
	return subcloudID, nil
}

// GetBySubcloud is the reverse lookup, used to decide whether a subcloud
// resource unmatched by identity is "mappable" (has a master counterpart
// already recorded) when the audit walks S \ matched.
func (r *Repository) GetBySubcloud(ctx context.Context, resourceType, region, subcloudID string) (string, error) {
	var masterID string
	err := r.db.GetContext(ctx, &masterID, `
		SELECT master_id FROM resource_mapping
		WHERE subcloud_region = $1 AND resource_type = $2 AND subcloud_id = $3`,
		region, resourceType, subcloudID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mapping: get by subcloud: %w", err)
	}
	return masterID, nil
}

// Delete removes the mapping, e.g. when the subcloud-side resource is
// deleted (spec.md §4.2).
func (r *Repository) Delete(ctx context.Context, resourceType, masterID, region string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM resource_mapping
		WHERE master_id = $1 AND subcloud_region = $2 AND resource_type = $3`,
		masterID, region, resourceType,
	)
	if err != nil {
		return fmt.Errorf("mapping: delete: %w", err)
	}
	return nil
}
