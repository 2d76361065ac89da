package dbsyncclient

import (
	"context"
	"fmt"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// RevokeEventSelector names which field a revoke_events.delete call matches
// on. Per spec.md §4.1 and the Open Question resolved in DESIGN.md, a
// UserID selector is authoritative over an AuditID one whenever a handler
// has both available.
type RevokeEventSelector struct {
	AuditID string
	UserID  string
}

// RevokeEvents exposes the dbsync operations for token-revocation events.
// There is no update operation: revoke events are immutable once issued
// (spec.md §3).
type RevokeEvents struct{ c *Client }

func (c *Client) RevokeEvents() RevokeEvents { return RevokeEvents{c: c} }

func (r RevokeEvents) List(ctx context.Context) ([]identity.RevokeEvent, error) {
	var out []identity.RevokeEvent
	if err := r.c.do(ctx, "revoke_events.list", "GET", "/identity/revoke_events/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Detail fetches one revoke event by its audit id (spec.md §4.4
// revoke-events.create: "fetch by audit_id").
func (r RevokeEvents) Detail(ctx context.Context, auditID string) (identity.RevokeEvent, error) {
	var out identity.RevokeEvent
	path := fmt.Sprintf("/identity/revoke_events/%s", auditID)
	if err := r.c.do(ctx, "revoke_events.detail", "GET", path, nil, &out); err != nil {
		return identity.RevokeEvent{}, err
	}
	return out, nil
}

// DetailByUser fetches one user-revoke-event record by its user_id
// selector (spec.md §4.4 revoke-events.user-create).
func (r RevokeEvents) DetailByUser(ctx context.Context, userID string) (identity.RevokeEvent, error) {
	var out identity.RevokeEvent
	path := fmt.Sprintf("/identity/revoke_events/user/%s", userID)
	if err := r.c.do(ctx, "user_revoke_events.detail", "GET", path, nil, &out); err != nil {
		return identity.RevokeEvent{}, err
	}
	return out, nil
}

func (r RevokeEvents) Create(ctx context.Context, rec identity.RevokeEvent) (identity.RevokeEvent, error) {
	var out identity.RevokeEvent
	if err := r.c.do(ctx, "revoke_events.create", "POST", "/identity/revoke_events/", rec, &out); err != nil {
		return identity.RevokeEvent{}, err
	}
	return out, nil
}

// CreateForUser issues a per-user revocation record, the
// "user_revoke_events" variant of the resource (spec.md §3's
// ResourceTypeUserRevokeEvt).
func (r RevokeEvents) CreateForUser(ctx context.Context, rec identity.RevokeEvent) (identity.RevokeEvent, error) {
	var out identity.RevokeEvent
	if err := r.c.do(ctx, "user_revoke_events.create", "POST", "/identity/revoke_events/user/", rec, &out); err != nil {
		return identity.RevokeEvent{}, err
	}
	return out, nil
}

// Delete removes revoke events matching sel. A UserID selector takes
// precedence over an AuditID one when both are set. A 404 is treated as
// success.
func (r RevokeEvents) Delete(ctx context.Context, sel RevokeEventSelector) error {
	var path string
	switch {
	case sel.UserID != "":
		path = fmt.Sprintf("/identity/revoke_events/?user_id=%s", sel.UserID)
	case sel.AuditID != "":
		path = fmt.Sprintf("/identity/revoke_events/%s", sel.AuditID)
	default:
		return syncerrors.New("revoke_events.delete", syncerrors.KindBadRequest, fmt.Errorf("no selector set"))
	}
	err := r.c.do(ctx, "revoke_events.delete", "DELETE", path, nil, nil)
	if syncerrors.Is(err, syncerrors.KindNotFound) {
		return nil
	}
	return err
}
