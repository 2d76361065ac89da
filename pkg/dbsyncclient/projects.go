package dbsyncclient

import (
	"context"
	"fmt"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
)

// Projects exposes the five dbsync operations for the project resource
// type. Structurally identical to Users without the local-user/password
// sub-records (spec.md §4.4).
type Projects struct{ c *Client }

func (c *Client) Projects() Projects { return Projects{c: c} }

func (p Projects) List(ctx context.Context) ([]identity.Project, error) {
	var out []identity.Project
	if err := p.c.do(ctx, "projects.list", "GET", "/identity/projects/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p Projects) Detail(ctx context.Context, id string) (identity.Project, error) {
	var out identity.Project
	path := fmt.Sprintf("/identity/projects/%s", id)
	if err := p.c.do(ctx, "projects.detail", "GET", path, nil, &out); err != nil {
		return identity.Project{}, err
	}
	return out, nil
}

func (p Projects) Create(ctx context.Context, rec identity.Project) (identity.Project, error) {
	var out identity.Project
	if err := p.c.do(ctx, "projects.create", "POST", "/identity/projects/", rec, &out); err != nil {
		return identity.Project{}, err
	}
	return out, nil
}

func (p Projects) Update(ctx context.Context, subcloudID string, rec identity.Project) (identity.Project, error) {
	var out identity.Project
	path := fmt.Sprintf("/identity/projects/%s", subcloudID)
	if err := p.c.do(ctx, "projects.update", "PUT", path, rec, &out); err != nil {
		return identity.Project{}, err
	}
	return out, nil
}

func (p Projects) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/identity/projects/%s", id)
	err := p.c.do(ctx, "projects.delete", "DELETE", path, nil, nil)
	if syncerrors.Is(err, syncerrors.KindNotFound) {
		return nil
	}
	return err
}
