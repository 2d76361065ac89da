// Package subcloud is the per-subcloud engine of spec.md §4.6: it owns
// one syncthread.Thread per endpoint type for a single remote cloud and
// drives that set through the Loading/Enabled/Disabled/Deleting lifecycle
// spec.md §3 assigns a Subcloud registry record.
//
// Grounded on the teacher's controller-per-CR lifecycle (each
// reconciled object owns a bounded set of child goroutines/resources,
// started and torn down idempotently), generalized from "one controller
// per CR" to "one engine per subcloud".
package subcloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/audit"
	"github.com/distributedcloud/identity-sync-engine/pkg/backoff"
	"github.com/distributedcloud/identity-sync-engine/pkg/config"
	"github.com/distributedcloud/identity-sync-engine/pkg/dbsyncclient"
	"github.com/distributedcloud/identity-sync-engine/pkg/mapping"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread/handlers"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// State is the per-subcloud engine lifecycle of spec.md §4.6.
type State string

const (
	StateLoading  State = "loading"
	StateEnabled  State = "enabled"
	StateDisabled State = "disabled"
	StateDeleting State = "deleting"
)

// Handle owns the sync threads for one subcloud: one per configured
// endpoint type, all sharing the same master/subcloud client pair and
// credential sessions.
type Handle struct {
	Region string

	cfg      config.EngineConfig
	master   *dbsyncclient.Client
	sub      *dbsyncclient.Client
	sessions syncthread.Sessions
	status   syncthread.StatusSink
	logger   logr.Logger

	mu      sync.Mutex
	state   State
	threads map[string]*syncthread.Thread
	cancel  context.CancelFunc
}

// New builds a Handle in the Loading state. Its threads are constructed
// but not started; call Enable to start them.
func New(
	region string,
	cfg config.EngineConfig,
	master, sub *dbsyncclient.Client,
	queue *workqueue.Repository,
	mappingRepo *mapping.Repository,
	sessions syncthread.Sessions,
	status syncthread.StatusSink,
	bo backoff.Policy,
	logger logr.Logger,
) *Handle {
	h := &Handle{
		Region:   region,
		cfg:      cfg,
		master:   master,
		sub:      sub,
		sessions: sessions,
		status:   status,
		logger:   logger.WithName("subcloud").WithValues("region", region),
		state:    StateLoading,
		threads:  make(map[string]*syncthread.Thread, len(cfg.EndpointTypes)),
	}

	registry := syncthread.NewRegistry()
	handlers.Register(registry, handlers.Clouds{Master: master, Subcloud: sub, Mapping: mappingRepo, Region: region})

	for _, et := range cfg.EndpointTypes {
		h.threads[et] = syncthread.NewThread(region, et, queue, registry, sessions, status, bo, cfg.IdleSleep)
	}
	return h
}

// State reports the handle's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Enable starts every endpoint type's sync thread goroutine, idempotent
// against an already-enabled handle (spec.md §4.6).
func (h *Handle) Enable(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateEnabled {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	for _, t := range h.threads {
		go t.Run(runCtx)
	}
	h.state = StateEnabled
	h.logger.Info("subcloud enabled")
}

// Disable stops every sync thread, idempotent against an already-disabled
// handle (spec.md §4.6). The management state for this subcloud should be
// set to unmanaged by the caller alongside this call, per
// subcloudregistry.Subcloud's invariant.
func (h *Handle) Disable(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateEnabled {
		return
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.state = StateDisabled
	h.logger.Info("subcloud disabled")
}

// Delete transitions the handle to Deleting and stops any running
// threads; the caller is responsible for removing the handle from the
// syncmanager registry and the subcloud registry record afterwards.
// Deletion is only valid once the subcloud registry record itself reports
// Deletable (spec.md §3: "unmanaged ∧ offline").
func (h *Handle) Delete(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateDeleting {
		return nil
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.state = StateDeleting
	h.logger.Info("subcloud deleting")
	return nil
}

// RunAudit drives one audit pass across every configured endpoint type
// and wakes the corresponding sync thread so newly enqueued work is
// picked up without waiting for its idle timer (spec.md §4.5's "triggered
// on a fixed cadence... and additionally on demand").
func (h *Handle) RunAudit(ctx context.Context, engine *audit.Engine) error {
	h.mu.Lock()
	threads := make(map[string]*syncthread.Thread, len(h.threads))
	for k, v := range h.threads {
		threads[k] = v
	}
	h.mu.Unlock()

	for et, t := range threads {
		if err := engine.RunOnce(ctx, h.Region, et, h.master, h.sub); err != nil {
			return fmt.Errorf("subcloud %s: audit %s: %w", h.Region, et, err)
		}
		t.Wake()
	}
	return nil
}
