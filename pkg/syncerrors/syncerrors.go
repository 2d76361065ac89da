// Package syncerrors implements the error taxonomy of spec.md §7 as a
// typed result rather than the source's exception-based control flow
// (spec.md §9): handlers pattern-match on Kind instead of catching
// language exceptions, and NotFound-on-delete is an expected Ok case
// rather than a caught error.
package syncerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure from a dbsync or identity-API call.
type Kind int

const (
	// KindUnauthorized means the credential was rejected (HTTP 401).
	KindUnauthorized Kind = iota
	// KindUnreachable means the call timed out or the connection failed.
	KindUnreachable
	// KindNotFound means the resource does not exist; on delete this is
	// treated by callers as success, not as this Kind.
	KindNotFound
	// KindConflict means the create collided with an existing resource.
	KindConflict
	// KindEmptyResponse means the server returned a 2xx with a body empty
	// of the record the caller expected.
	KindEmptyResponse
	// KindBadRequest means the request payload was malformed.
	KindBadRequest
	// KindInternal means an unexpected failure occurred.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindUnreachable:
		return "Unreachable"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindEmptyResponse:
		return "EmptyResponse"
	case KindBadRequest:
		return "BadRequest"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind classification and stack
// trace, following the teacher's errors.WithStack usage at transport
// boundaries.
type Error struct {
	Kind    Kind
	Op      string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a classified error, capturing a stack trace via
// github.com/pkg/errors for later diagnostics.
func New(op string, kind Kind, cause error) *Error {
	if cause == nil {
		cause = errors.Errorf("%s", kind)
	}
	return &Error{Kind: kind, Op: op, cause: errors.WithStack(cause)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}

// Disposition is the sync loop's handling instruction for a handler
// result, per spec.md §4.4.
type Disposition int

const (
	// DispositionOK means the item completed successfully.
	DispositionOK Disposition = iota
	// DispositionRetry means the item stays queued for a later attempt,
	// backed off, with no session reinitialize (spec.md §4.4 step 5).
	DispositionRetry
	// DispositionReauth means the credential was rejected; the sync loop
	// reinitializes the session and retries the same item exactly once
	// before falling back to an ordinary backed-off retry (spec.md §4.4
	// step 4).
	DispositionReauth
	// DispositionFatal means the item moves to the failed state.
	DispositionFatal
)

// Classify maps a Kind to the handler disposition prescribed by
// spec.md §4.4 steps 4-6 and the taxonomy table in §7.
func Classify(kind Kind) Disposition {
	switch kind {
	case KindUnreachable, KindInternal:
		return DispositionRetry
	case KindUnauthorized:
		return DispositionReauth
	case KindEmptyResponse, KindBadRequest, KindConflict:
		return DispositionFatal
	default:
		return DispositionFatal
	}
}
