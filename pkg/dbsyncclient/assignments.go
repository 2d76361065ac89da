package dbsyncclient

import (
	"context"
	"fmt"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// Assignments exposes the dbsync operations for role assignments,
// addressed by the composite "{target}_{actor}_{role}" id (spec.md §6).
type Assignments struct{ c *Client }

func (c *Client) Assignments() Assignments { return Assignments{c: c} }

func (a Assignments) List(ctx context.Context) ([]identity.Assignment, error) {
	var out []identity.Assignment
	if err := a.c.do(ctx, "assignments.list", "GET", "/identity/assignments/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Detail fetches one assignment by its composite id.
func (a Assignments) Detail(ctx context.Context, compositeID string) (identity.Assignment, error) {
	var out identity.Assignment
	path := fmt.Sprintf("/identity/assignments/%s", compositeID)
	if err := a.c.do(ctx, "assignments.detail", "GET", path, nil, &out); err != nil {
		return identity.Assignment{}, err
	}
	return out, nil
}

// Create grants the role assignment described by rec; the actor/target/
// role ids in rec must already resolve on this cloud (spec.md §3
// referential-safety invariant).
func (a Assignments) Create(ctx context.Context, rec identity.Assignment) (identity.Assignment, error) {
	var out identity.Assignment
	if err := a.c.do(ctx, "assignments.create", "POST", "/identity/assignments/", rec, &out); err != nil {
		return identity.Assignment{}, err
	}
	return out, nil
}

// Delete revokes the assignment by composite id; a 404 is treated as
// success (spec.md §4.4 assignments.delete).
func (a Assignments) Delete(ctx context.Context, compositeID string) error {
	path := fmt.Sprintf("/identity/assignments/%s", compositeID)
	err := a.c.do(ctx, "assignments.delete", "DELETE", path, nil, nil)
	if syncerrors.Is(err, syncerrors.KindNotFound) {
		return nil
	}
	return err
}
