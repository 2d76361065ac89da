// Package syncmanager is the generic sync manager of spec.md §4.8: the
// single process-wide registry of subcloud.Handle values, dispatching the
// lifecycle and on-demand operations the control plane and the fernet
// manager invoke.
//
// Grounded on the teacher's manager-level object registries (a coarse
// sync.Mutex guarding only the map mutation itself, never the long-running
// work the map's values do), generalized from Grafana-organization
// handles to subcloud handles.
package syncmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/audit"
	"github.com/distributedcloud/identity-sync-engine/pkg/subcloud"
)

// SubcloudNotFound is returned by every Manager operation addressing a
// region name the registry does not hold.
type SubcloudNotFound struct {
	Region string
}

func (e *SubcloudNotFound) Error() string {
	return fmt.Sprintf("syncmanager: subcloud %q not found", e.Region)
}

// Manager is the process-wide registry of subcloud.Handle values, keyed
// by region name (spec.md §4.8, §5: "a coarse mutex only around the map
// mutation").
type Manager struct {
	mu      sync.Mutex
	handles map[string]*subcloud.Handle
	logger  logr.Logger
}

// New builds an empty Manager.
func New(logger logr.Logger) *Manager {
	return &Manager{
		handles: make(map[string]*subcloud.Handle),
		logger:  logger.WithName("syncmanager"),
	}
}

func (m *Manager) lookup(region string) (*subcloud.Handle, error) {
	m.mu.Lock()
	h, ok := m.handles[region]
	m.mu.Unlock()
	if !ok {
		return nil, &SubcloudNotFound{Region: region}
	}
	return h, nil
}

// Regions returns every currently registered subcloud region name, used
// by the fernet manager to fan a key rotation out to every subcloud
// (spec.md §4.7).
func (m *Manager) Regions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.handles))
	for region := range m.handles {
		out = append(out, region)
	}
	return out
}

// AddSubcloud registers a newly built handle under its region name.
func (m *Manager) AddSubcloud(h *subcloud.Handle) {
	m.mu.Lock()
	m.handles[h.Region] = h
	m.mu.Unlock()
	m.logger.Info("subcloud added", "region", h.Region)
}

// DelSubcloud removes a handle from the registry after it has finished
// tearing down (spec.md §4.8 del_subcloud).
func (m *Manager) DelSubcloud(ctx context.Context, region string) error {
	h, err := m.lookup(region)
	if err != nil {
		return err
	}
	if delErr := h.Delete(ctx); delErr != nil {
		return delErr
	}
	m.mu.Lock()
	delete(m.handles, region)
	m.mu.Unlock()
	m.logger.Info("subcloud deleted", "region", region)
	return nil
}

// EnableSubcloud starts sync threads for region (spec.md §4.8
// enable_subcloud).
func (m *Manager) EnableSubcloud(ctx context.Context, region string) error {
	h, err := m.lookup(region)
	if err != nil {
		return err
	}
	h.Enable(ctx)
	return nil
}

// DisableSubcloud stops sync threads for region (spec.md §4.8
// disable_subcloud).
func (m *Manager) DisableSubcloud(ctx context.Context, region string) error {
	h, err := m.lookup(region)
	if err != nil {
		return err
	}
	h.Disable(ctx)
	return nil
}

// UpdateSubcloudVersion is a hook point for the upgrade-coordination
// concerns original_source/ shows around software_version (spec.md §4.8
// update_subcloud_version); version bookkeeping itself lives in
// pkg/subcloudregistry, so the manager's role is solely to confirm the
// subcloud is registered before the caller proceeds.
func (m *Manager) UpdateSubcloudVersion(ctx context.Context, region string) error {
	_, err := m.lookup(region)
	return err
}

// SyncRequest forces an immediate audit pass for one subcloud, the
// "additionally on demand" trigger of spec.md §4.5 (spec.md §4.8
// sync_request).
func (m *Manager) SyncRequest(ctx context.Context, region string, engine *audit.Engine) error {
	h, err := m.lookup(region)
	if err != nil {
		return err
	}
	return h.RunAudit(ctx, engine)
}

// RunSyncAudit runs one audit pass against every registered subcloud
// (spec.md §4.8 run_sync_audit), the periodic-cadence entry point.
func (m *Manager) RunSyncAudit(ctx context.Context, engine *audit.Engine) error {
	m.mu.Lock()
	handles := make([]*subcloud.Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.RunAudit(ctx, engine); err != nil {
			m.logger.Error(err, "audit pass failed", "region", h.Region)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
