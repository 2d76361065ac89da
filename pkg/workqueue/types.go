// Package workqueue is the durable work queue and orch-job store of
// spec.md §4.3: at-least-once enqueue, exactly-one-in-flight dequeue per
// (subcloud, endpoint_type), de-duplication by coalescing onto an
// existing queued row.
package workqueue

import "time"

// OperationType is the verb an OrchRequest carries out.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "put"
	OperationPatch  OperationType = "patch"
	OperationDelete OperationType = "delete"
)

// RequestState is the lifecycle of one OrchRequest (spec.md §3).
type RequestState string

const (
	StateQueued     RequestState = "queued"
	StateInProgress RequestState = "in-progress"
	StateCompleted  RequestState = "completed"
	StateFailed     RequestState = "failed"
	StateAborted    RequestState = "aborted"
)

// Terminal reports whether this state allows the owning OrchJob to be
// deleted (spec.md §3: "an OrchJob may be deleted only when all its
// OrchRequests are terminal").
func (s RequestState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateAborted:
		return true
	default:
		return false
	}
}

// Job describes what to do, independent of which subcloud it targets
// (spec.md §3 OrchJob).
type Job struct {
	ID               int64
	OperationType    OperationType
	ResourceType     string
	SourceResourceID string
	ResourceInfo     []byte // inline JSON blob
	CreatedAt        time.Time
}

// Request is one subcloud's instance of a Job (spec.md §3 OrchRequest).
// It carries enough identity to be regenerated from scratch on restart
// (spec.md §4.3): JobID + TargetRegion + EndpointType + ResourceType +
// SourceResourceID + OperationType fully determine what work it is.
type Request struct {
	ID               int64
	JobID            int64
	TargetRegion     string
	EndpointType     string
	ResourceType     string
	SourceResourceID string
	OperationType    OperationType
	State            RequestState
	Attempts         int
	Sequence         int64
	NextAttemptAt    time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key is the de-duplication identity from spec.md §4.3: "if a work item
// for (subcloud, resource_type, master_id, op) already exists in queued
// state, a new enqueue coalesces onto it rather than appending."
type Key struct {
	TargetRegion     string
	ResourceType     string
	SourceResourceID string
	OperationType    OperationType
}
