package dbsyncclient

import (
	"context"
	"fmt"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// Roles exposes the five dbsync operations for the role resource type.
type Roles struct{ c *Client }

func (c *Client) Roles() Roles { return Roles{c: c} }

func (r Roles) List(ctx context.Context) ([]identity.Role, error) {
	var out []identity.Role
	if err := r.c.do(ctx, "roles.list", "GET", "/identity/roles/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r Roles) Detail(ctx context.Context, id string) (identity.Role, error) {
	var out identity.Role
	path := fmt.Sprintf("/identity/roles/%s", id)
	if err := r.c.do(ctx, "roles.detail", "GET", path, nil, &out); err != nil {
		return identity.Role{}, err
	}
	return out, nil
}

func (r Roles) Create(ctx context.Context, rec identity.Role) (identity.Role, error) {
	var out identity.Role
	if err := r.c.do(ctx, "roles.create", "POST", "/identity/roles/", rec, &out); err != nil {
		return identity.Role{}, err
	}
	return out, nil
}

func (r Roles) Update(ctx context.Context, subcloudID string, rec identity.Role) (identity.Role, error) {
	var out identity.Role
	path := fmt.Sprintf("/identity/roles/%s", subcloudID)
	if err := r.c.do(ctx, "roles.update", "PUT", path, rec, &out); err != nil {
		return identity.Role{}, err
	}
	return out, nil
}

func (r Roles) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/identity/roles/%s", id)
	err := r.c.do(ctx, "roles.delete", "DELETE", path, nil, nil)
	if syncerrors.Is(err, syncerrors.KindNotFound) {
		return nil
	}
	return err
}
