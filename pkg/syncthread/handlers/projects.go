package handlers

import (
	"context"

	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// RegisterProjects wires the projects.create/update/delete handlers,
// structurally identical to users without the password/local-user
// sub-records (spec.md §4.4).
func RegisterProjects(reg *syncthread.Registry, c Clouds) {
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceProjects},
		syncthread.HandlerFunc(c.projectsCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationUpdate, ResourceType: resourceProjects},
		syncthread.HandlerFunc(c.projectsUpdate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceProjects},
		syncthread.HandlerFunc(c.projectsDelete))
}

func (c Clouds) projectsCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	rec, err := c.Master.Projects().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}
	created, err := c.Subcloud.Projects().Create(ctx, rec)
	if err != nil {
		return outcomeFor(err)
	}
	if err := c.Mapping.Put(ctx, resourceProjects, masterID, c.Region, created.ID); err != nil {
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

func (c Clouds) projectsUpdate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceProjects, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}
	rec, err := c.Master.Projects().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}
	if _, err := c.Subcloud.Projects().Update(ctx, subcloudID, rec); err != nil {
		return outcomeFor(err)
	}
	return syncthread.OutcomeOK
}

func (c Clouds) projectsDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceProjects, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}
	if err := c.Subcloud.Projects().Delete(ctx, subcloudID); err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceProjects, masterID, c.Region)
	return syncthread.OutcomeOK
}
