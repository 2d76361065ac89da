package handlers

import (
	"context"

	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// RegisterRoles wires the roles.create/update/delete handlers,
// structurally identical to projects (spec.md §4.4).
func RegisterRoles(reg *syncthread.Registry, c Clouds) {
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceRoles},
		syncthread.HandlerFunc(c.rolesCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationUpdate, ResourceType: resourceRoles},
		syncthread.HandlerFunc(c.rolesUpdate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceRoles},
		syncthread.HandlerFunc(c.rolesDelete))
}

func (c Clouds) rolesCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	rec, err := c.Master.Roles().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}
	created, err := c.Subcloud.Roles().Create(ctx, rec)
	if err != nil {
		return outcomeFor(err)
	}
	if err := c.Mapping.Put(ctx, resourceRoles, masterID, c.Region, created.ID); err != nil {
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

func (c Clouds) rolesUpdate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceRoles, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}
	rec, err := c.Master.Roles().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}
	if _, err := c.Subcloud.Roles().Update(ctx, subcloudID, rec); err != nil {
		return outcomeFor(err)
	}
	return syncthread.OutcomeOK
}

func (c Clouds) rolesDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceRoles, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}
	if err := c.Subcloud.Roles().Delete(ctx, subcloudID); err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceRoles, masterID, c.Region)
	return syncthread.OutcomeOK
}
