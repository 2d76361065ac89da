package syncthread

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/backoff"
	"github.com/distributedcloud/identity-sync-engine/pkg/logging"
	"github.com/distributedcloud/identity-sync-engine/pkg/metrics"
	"github.com/distributedcloud/identity-sync-engine/pkg/subcloudregistry"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// Sessions is the pair of cached credentials a Thread reinitializes
// together on Unauthorized, per spec.md §4.4 step 4 ("refresh the
// session used for both master and subcloud clients").
type Sessions interface {
	Reinitialize(ctx context.Context) error
}

// StatusSink is the subset of the subcloud registry a Thread updates as
// it works: endpoint sync status (step 5, step 7) and whether the last
// audit pass for a resource type came back clean (step 7).
type StatusSink interface {
	SetEndpointStatus(ctx context.Context, region, endpointType string, status subcloudregistry.SyncStatus) error
	LastAuditClean(region, resourceType string) bool
}

// Queue is the subset of *workqueue.Repository a Thread needs, narrowed
// to an interface so tests can substitute an in-memory fake.
type Queue interface {
	Drain(ctx context.Context, targetRegion, endpointType string, limit int) ([]workqueue.Request, error)
	CountQueued(ctx context.Context, targetRegion, endpointType, resourceType string) (int, error)
	ResourceInfo(ctx context.Context, jobID int64) ([]byte, error)
	MarkInProgress(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64) error
	Requeue(ctx context.Context, id int64, nextAttemptAt time.Time) error
	DeleteJobIfTerminal(ctx context.Context, jobID int64) error
}

// Thread is one (subcloud, endpoint_type) sync loop (spec.md §4.4).
type Thread struct {
	Region       string
	EndpointType string

	queue      Queue
	registry   *Registry
	sessions   Sessions
	status     StatusSink
	backoff    backoff.Policy
	idleSleep  time.Duration
	drainLimit int
	wakeup     chan struct{}

	state State
}

// NewThread builds a Thread for one (region, endpointType) scope.
func NewThread(region, endpointType string, queue Queue, registry *Registry, sessions Sessions, status StatusSink, bo backoff.Policy, idleSleep time.Duration) *Thread {
	return &Thread{
		Region:       region,
		EndpointType: endpointType,
		queue:        queue,
		registry:     registry,
		sessions:     sessions,
		status:       status,
		backoff:      bo,
		idleSleep:    idleSleep,
		drainLimit:   64,
		wakeup:       make(chan struct{}, 1),
		state:        StateIdle,
	}
}

// State reports the thread's current lifecycle state.
func (t *Thread) State() State { return t.state }

// Wake nudges the thread out of Sleeping without waiting for its idle
// timer, e.g. after an audit pass enqueues new work.
func (t *Thread) Wake() {
	select {
	case t.wakeup <- struct{}{}:
	default:
	}
}

// Run executes the sync loop until ctx is cancelled (spec.md §4.4). It is
// meant to be invoked as `go thread.Run(ctx)` once per subcloud per
// endpoint type; cancellation is observed only at loop boundaries between
// items, never mid-handler (spec.md §5).
func (t *Thread) Run(ctx context.Context) {
	log := logging.FromContext(ctx).WithName("syncthread").WithValues(
		"region", t.Region, "endpointType", t.EndpointType)

	for {
		t.state = StateSleeping
		select {
		case <-ctx.Done():
			t.state = StateStopping
			log.Info("stopping")
			return
		case <-t.wakeup:
		case <-time.After(t.idleSleep):
		}

		t.state = StateWorking
		if err := t.drainOnce(ctx, log); err != nil {
			log.Error(err, "drain pass failed")
		}
		t.state = StateIdle
	}
}

func (t *Thread) drainOnce(ctx context.Context, log logr.Logger) error {
	items, err := t.queue.Drain(ctx, t.Region, t.EndpointType, t.drainLimit)
	if err != nil {
		return err
	}
	touchedTypes := map[string]bool{}
	for _, req := range items {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		// The item runs to completion even if ctx is cancelled meanwhile;
		// cancellation is only checked above, between items.
		t.processOne(context.WithoutCancel(ctx), log, req)
		touchedTypes[req.ResourceType] = true
	}
	for rt := range touchedTypes {
		t.maybeMarkInSync(ctx, rt)
	}
	return nil
}

func (t *Thread) processOne(ctx context.Context, log logr.Logger, req workqueue.Request) {
	if err := t.queue.MarkInProgress(ctx, req.ID); err != nil {
		log.Error(err, "mark in-progress failed", "request", req.ID)
		return
	}

	handler := t.registry.Lookup(req.OperationType, req.ResourceType)
	if handler == nil {
		log.Info("no handler registered, failing item", "resourceType", req.ResourceType, "op", req.OperationType)
		t.finishFatal(ctx, req)
		return
	}

	info, err := t.queue.ResourceInfo(ctx, req.JobID)
	if err != nil {
		log.Error(err, "resource info lookup failed", "request", req.ID)
		t.finishRetry(ctx, req)
		return
	}
	item := Item{Request: req, Resource: info}

	outcome := handler.Handle(ctx, item)
	if outcome == OutcomeReauth {
		// spec.md §4.4 step 4: Unauthorized gets one reinitialize-and-retry
		// before it is treated as an ordinary retry-with-backoff. Only
		// Unauthorized reaches here; Unreachable/Internal classify
		// straight to OutcomeRetry and never trigger a reinitialize
		// (spec.md §4.4 step 5).
		if t.sessions != nil {
			if rerr := t.sessions.Reinitialize(ctx); rerr == nil {
				outcome = handler.Handle(ctx, item)
			}
		}
		if outcome == OutcomeReauth {
			// A second Unauthorized (or a failed reinitialize) is
			// requeued with backoff like any other retry, not
			// reinitialized again.
			outcome = OutcomeRetry
		}
	}

	metrics.SyncOutcomesTotal.WithLabelValues(t.Region, req.ResourceType, string(req.OperationType), outcome.String()).Inc()

	switch outcome {
	case OutcomeOK:
		t.finishOK(ctx, req)
	case OutcomeFatal:
		t.finishFatal(ctx, req)
	default:
		t.finishRetry(ctx, req)
	}
}

func (t *Thread) finishOK(ctx context.Context, req workqueue.Request) {
	_ = t.queue.Complete(ctx, req.ID)
	_ = t.queue.DeleteJobIfTerminal(ctx, req.JobID)
}

func (t *Thread) finishFatal(ctx context.Context, req workqueue.Request) {
	_ = t.queue.Fail(ctx, req.ID)
	_ = t.queue.DeleteJobIfTerminal(ctx, req.JobID)
}

// finishRetry implements spec.md §4.4 step 5: the endpoint is marked
// out-of-sync, the item stays queued, and its next attempt is scheduled
// with exponential backoff.
func (t *Thread) finishRetry(ctx context.Context, req workqueue.Request) {
	if t.status != nil {
		_ = t.status.SetEndpointStatus(ctx, t.Region, t.EndpointType, subcloudregistry.SyncStatusOutOfSync)
	}
	next := t.backoff.NextAttemptAt(time.Now(), req.Attempts)
	_ = t.queue.Requeue(ctx, req.ID, next)
}

// maybeMarkInSync implements spec.md §4.4 step 7: once a resource type's
// queue has drained and its last audit pass was clean, the endpoint
// status for this scope is promoted to in-sync.
func (t *Thread) maybeMarkInSync(ctx context.Context, resourceType string) {
	if t.status == nil {
		return
	}
	if !t.status.LastAuditClean(t.Region, resourceType) {
		return
	}
	remaining, err := t.queue.CountQueued(ctx, t.Region, t.EndpointType, resourceType)
	if err != nil || remaining > 0 {
		return
	}
	_ = t.status.SetEndpointStatus(ctx, t.Region, t.EndpointType, subcloudregistry.SyncStatusInSync)
}
