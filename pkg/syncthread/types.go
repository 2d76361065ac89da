// Package syncthread implements the per-(subcloud, endpoint_type) sync
// loop of spec.md §4.4: one goroutine draining the durable work queue in
// insertion order and dispatching each item to a handler keyed by
// (operation_type, resource_type).
//
// Grounded on the teacher's controller reconcile loop shape (a
// condition-driven state machine logging through a context-scoped
// logr.Logger) generalized from "one reconcile per CRD event" to "one
// drain pass per wakeup", per spec.md §9's cooperative-loop-to-goroutine
// redesign.
package syncthread

import (
	"context"
	"errors"

	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// ErrUnsupportedActor is returned by the assignments.create handler when
// an assignment's actor is a group rather than a user; groups have no
// resource type modeled in this engine.
var ErrUnsupportedActor = errors.New("syncthread: group actors are not supported")

// State is one of the four sync-thread states of spec.md §4.4.
type State string

const (
	StateIdle     State = "idle"
	StateWorking  State = "working"
	StateSleeping State = "sleeping"
	StateStopping State = "stopping"
)

// Item is the unit of work a Handler processes: the queued request plus
// the decoded resource payload it carries.
type Item struct {
	Request  workqueue.Request
	Resource []byte
}

// Outcome is a handler's verdict on one Item (spec.md §4.4 step 3: "ok |
// retry | fatal").
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetry
	// OutcomeReauth means the credential was rejected (Unauthorized); the
	// sync loop reinitializes the session and retries the item once
	// before treating a further failure as an ordinary OutcomeRetry
	// (spec.md §4.4 step 4). Handlers only ever classify into this from
	// syncerrors.KindUnauthorized via FromKind; they never need to know
	// about reinitialize themselves.
	OutcomeReauth
	OutcomeFatal
)

// String renders an Outcome as a metrics label value.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetry:
		return "retry"
	case OutcomeReauth:
		return "reauth"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FromKind translates a syncerrors.Kind into the Outcome the sync loop
// acts on, via the disposition table of spec.md §7.
func FromKind(kind syncerrors.Kind) Outcome {
	switch syncerrors.Classify(kind) {
	case syncerrors.DispositionOK:
		return OutcomeOK
	case syncerrors.DispositionReauth:
		return OutcomeReauth
	case syncerrors.DispositionRetry:
		return OutcomeRetry
	default:
		return OutcomeFatal
	}
}

// HandlerKey identifies one entry in the handler catalog.
type HandlerKey struct {
	Operation    workqueue.OperationType
	ResourceType string
}

// Handler processes one Item against the master and subcloud clouds and
// returns its disposition. Implementations live in
// pkg/syncthread/handlers and are pure of the sync-loop's retry/backoff
// bookkeeping: they only ever classify their own failure.
type Handler interface {
	Handle(ctx context.Context, item Item) Outcome
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, item Item) Outcome

func (f HandlerFunc) Handle(ctx context.Context, item Item) Outcome { return f(ctx, item) }

// Registry is the handler catalog of spec.md §4.4, keyed by
// (operation_type, resource_type).
type Registry struct {
	handlers map[HandlerKey]Handler
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[HandlerKey]Handler)}
}

// Register adds or replaces the handler for key.
func (r *Registry) Register(key HandlerKey, h Handler) {
	r.handlers[key] = h
}

// Lookup returns the handler for (op, resourceType), or nil if none is
// registered.
func (r *Registry) Lookup(op workqueue.OperationType, resourceType string) Handler {
	return r.handlers[HandlerKey{Operation: op, ResourceType: resourceType}]
}
