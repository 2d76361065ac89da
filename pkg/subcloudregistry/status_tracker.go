package subcloudregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/fault"
	"github.com/distributedcloud/identity-sync-engine/pkg/metrics"
)

// StatusTracker implements syncthread.StatusSink against a Repository,
// additionally raising and clearing the DC_SUBCLOUD_RESOURCE_OUT_OF_SYNC
// fault (spec.md §6) as the endpoint status flips, and tracking each
// resource type's last audit cleanliness in memory for the sync thread's
// in-sync promotion check (spec.md §4.4 step 7).
type StatusTracker struct {
	repo   *Repository
	faults fault.Sink
	logger logr.Logger

	mu    sync.Mutex
	clean map[string]map[string]bool // region -> resourceType -> clean
}

// NewStatusTracker builds a StatusTracker. faults may be nil, in which
// case fault emission is skipped (useful for tests).
func NewStatusTracker(repo *Repository, faults fault.Sink, logger logr.Logger) *StatusTracker {
	return &StatusTracker{
		repo:   repo,
		faults: faults,
		logger: logger.WithName("status-tracker"),
		clean:  make(map[string]map[string]bool),
	}
}

// SetEndpointStatus persists the new status and raises or clears the
// out-of-sync fault for (region, endpointType) as appropriate.
func (t *StatusTracker) SetEndpointStatus(ctx context.Context, region, endpointType string, status SyncStatus) error {
	if err := t.repo.setEndpointStatus(ctx, region, endpointType, status); err != nil {
		return err
	}
	metrics.EndpointSyncStatus.WithLabelValues(region, endpointType).Set(metrics.SyncStatusValue(string(status)))
	if t.faults == nil {
		return nil
	}
	entityID := fmt.Sprintf("subcloud=%s.resource=%s", region, endpointType)
	switch status {
	case SyncStatusOutOfSync:
		return t.faults.Raise(ctx, entityID, fault.ResourceOutOfSync)
	case SyncStatusInSync:
		return t.faults.Clear(ctx, entityID, fault.ResourceOutOfSync)
	default:
		return nil
	}
}

// RecordAuditResult is wired as audit.Engine.OnResult: it remembers
// whether the most recent audit pass for (region, resourceType) enqueued
// any create/update/delete work.
func (t *StatusTracker) RecordAuditResult(region, resourceType string, clean bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clean[region] == nil {
		t.clean[region] = make(map[string]bool)
	}
	t.clean[region][resourceType] = clean
}

// LastAuditClean reports whether the last recorded audit pass for
// (region, resourceType) was clean. Unknown pairs (no audit has run yet)
// conservatively report false, since promoting to in-sync before any
// audit has actually run would be premature.
func (t *StatusTracker) LastAuditClean(region, resourceType string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	byType, ok := t.clean[region]
	if !ok {
		return false
	}
	return byType[resourceType]
}
