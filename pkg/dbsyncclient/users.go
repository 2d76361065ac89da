package dbsyncclient

import (
	"context"
	"fmt"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// Users exposes the five dbsync operations of spec.md §4.1 for the user
// resource type.
type Users struct{ c *Client }

// Users returns the user-resource facade for this cloud.
func (c *Client) Users() Users { return Users{c: c} }

func (u Users) List(ctx context.Context) ([]identity.User, error) {
	var out []identity.User
	if err := u.c.do(ctx, "users.list", "GET", "/identity/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (u Users) Detail(ctx context.Context, id string) (identity.User, error) {
	var out identity.User
	path := fmt.Sprintf("/identity/users/%s", id)
	if err := u.c.do(ctx, "users.detail", "GET", path, nil, &out); err != nil {
		return identity.User{}, err
	}
	return out, nil
}

func (u Users) Create(ctx context.Context, rec identity.User) (identity.User, error) {
	var out identity.User
	if err := u.c.do(ctx, "users.create", "POST", "/identity/users/", rec, &out); err != nil {
		return identity.User{}, err
	}
	return out, nil
}

func (u Users) Update(ctx context.Context, subcloudID string, rec identity.User) (identity.User, error) {
	var out identity.User
	path := fmt.Sprintf("/identity/users/%s", subcloudID)
	if err := u.c.do(ctx, "users.update", "PUT", path, rec, &out); err != nil {
		return identity.User{}, err
	}
	return out, nil
}

// Patch applies a partial, field-level update to the user identified by
// subcloudID, per spec.md §4.4 users.patch.
func (u Users) Patch(ctx context.Context, subcloudID string, fields map[string]any) (identity.User, error) {
	var out identity.User
	path := fmt.Sprintf("/identity/users/%s", subcloudID)
	if err := u.c.do(ctx, "users.patch", "PATCH", path, fields, &out); err != nil {
		return identity.User{}, err
	}
	return out, nil
}

// Delete deletes the user by id; a 404 is treated as success per
// spec.md §4.1 and §7.
func (u Users) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/identity/users/%s", id)
	err := u.c.do(ctx, "users.delete", "DELETE", path, nil, nil)
	if syncerrors.Is(err, syncerrors.KindNotFound) {
		return nil
	}
	return err
}
