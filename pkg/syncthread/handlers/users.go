package handlers

import (
	"context"
	"encoding/json"

	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// RegisterUsers wires the users.create/update/patch/delete handlers of
// spec.md §4.4.
func RegisterUsers(reg *syncthread.Registry, c Clouds) {
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceUsers},
		syncthread.HandlerFunc(c.usersCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationUpdate, ResourceType: resourceUsers},
		syncthread.HandlerFunc(c.usersUpdate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationPatch, ResourceType: resourceUsers},
		syncthread.HandlerFunc(c.usersPatch))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceUsers},
		syncthread.HandlerFunc(c.usersDelete))
}

// usersCreate looks up the master record by source_resource_id, pushes it
// verbatim to the subcloud, and records the returned id in the mapping
// store (spec.md §4.4 users.create).
func (c Clouds) usersCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	log := logFor(ctx, "users.create")
	masterID := item.Request.SourceResourceID

	rec, err := c.Master.Users().Detail(ctx, masterID)
	if err != nil {
		log.V(1).Info("master lookup failed", "id", masterID)
		return outcomeFor(err)
	}

	created, err := c.Subcloud.Users().Create(ctx, rec)
	if err != nil {
		return outcomeFor(err)
	}

	if err := c.Mapping.Put(ctx, resourceUsers, masterID, c.Region, created.ID); err != nil {
		log.Error(err, "mapping put failed")
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

// usersUpdate resolves the subcloud id from the mapping store, fetches
// the current master record, and pushes it. Updating the bootstrap
// "admin" local user invalidates the cached subcloud session, since its
// password may have just changed (spec.md §4.4 users.update).
func (c Clouds) usersUpdate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceUsers, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}

	rec, err := c.Master.Users().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}

	if _, err := c.Subcloud.Users().Update(ctx, subcloudID, rec); err != nil {
		return outcomeFor(err)
	}

	if rec.IsAdmin() {
		c.Subcloud.InvalidateSession()
	}
	return syncthread.OutcomeOK
}

// usersPatch applies a partial, field-level update to the subcloud user
// resolved from the mapping store, using the cached subcloud id (spec.md
// §4.4 users.patch); the field set to apply travels in item.Resource as a
// JSON object, matching the source's patch_users unpacking of
// resource_info.
func (c Clouds) usersPatch(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	log := logFor(ctx, "users.patch")
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceUsers, masterID, c.Region)
	if err != nil {
		log.V(1).Info("mapping lookup failed", "id", masterID)
		return outcomeFor(err)
	}

	var patch map[string]any
	if len(item.Resource) > 0 {
		if err := json.Unmarshal(item.Resource, &patch); err != nil {
			return syncthread.OutcomeFatal
		}
	}
	if len(patch) == 0 {
		log.Info("patch request carried no update fields", "id", masterID)
		return syncthread.OutcomeFatal
	}

	if _, err := c.Subcloud.Users().Patch(ctx, subcloudID, patch); err != nil {
		return outcomeFor(err)
	}
	return syncthread.OutcomeOK
}

// usersDelete resolves the subcloud id via the mapping store and deletes
// it; a NotFound is success, and the mapping row is dropped either way
// (spec.md §4.4 users.delete).
func (c Clouds) usersDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subcloudID, err := c.Mapping.GetByMaster(ctx, resourceUsers, masterID, c.Region)
	if err != nil {
		subcloudID = masterID
	}

	if err := c.Subcloud.Users().Delete(ctx, subcloudID); err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceUsers, masterID, c.Region)
	return syncthread.OutcomeOK
}
