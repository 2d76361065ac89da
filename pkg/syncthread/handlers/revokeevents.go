package handlers

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/distributedcloud/identity-sync-engine/pkg/dbsyncclient"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// RegisterRevokeEvents wires the revoke_events and user_revoke_events
// create/delete handlers; revoke events are immutable once issued, so
// neither resource type has an update handler (spec.md §4.4).
func RegisterRevokeEvents(reg *syncthread.Registry, c Clouds) {
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceRevokeEvents},
		syncthread.HandlerFunc(c.revokeEventsCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceRevokeEvents},
		syncthread.HandlerFunc(c.revokeEventsDelete))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceUserRevokeEvents},
		syncthread.HandlerFunc(c.userRevokeEventsCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceUserRevokeEvents},
		syncthread.HandlerFunc(c.userRevokeEventsDelete))
}

// revokeEventsCreate fetches the master record by audit_id, pushes it to
// the subcloud, and maps audit_id to itself: the id travels verbatim
// between clouds (spec.md §4.4 revoke-events.create).
func (c Clouds) revokeEventsCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	auditID := item.Request.SourceResourceID

	rec, err := c.Master.RevokeEvents().Detail(ctx, auditID)
	if err != nil {
		return outcomeFor(err)
	}
	if _, err := c.Subcloud.RevokeEvents().Create(ctx, rec); err != nil {
		return outcomeFor(err)
	}
	if err := c.Mapping.Put(ctx, resourceRevokeEvents, auditID, c.Region, auditID); err != nil {
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

func (c Clouds) revokeEventsDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	auditID := item.Request.SourceResourceID

	err := c.Subcloud.RevokeEvents().Delete(ctx, dbsyncclient.RevokeEventSelector{AuditID: auditID})
	if err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceRevokeEvents, auditID, c.Region)
	return syncthread.OutcomeOK
}

// userRevokeEventsCreate fetches the master record by user_id selector
// and maps it under base64url(user_id + "_" + issued_before), since a
// user-scoped revocation has no single natural id of its own
// (spec.md §4.4 revoke-events.user-create).
func (c Clouds) userRevokeEventsCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	userID := item.Request.SourceResourceID

	rec, err := c.Master.RevokeEvents().DetailByUser(ctx, userID)
	if err != nil {
		return outcomeFor(err)
	}
	if _, err := c.Subcloud.RevokeEvents().CreateForUser(ctx, rec); err != nil {
		return outcomeFor(err)
	}
	mappingID := userRevokeEventMappingID(userID, rec.IssuedBefore)
	if err := c.Mapping.Put(ctx, resourceUserRevokeEvents, userID, c.Region, mappingID); err != nil {
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

func (c Clouds) userRevokeEventsDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	userID := item.Request.SourceResourceID

	err := c.Subcloud.RevokeEvents().Delete(ctx, dbsyncclient.RevokeEventSelector{UserID: userID})
	if err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceUserRevokeEvents, userID, c.Region)
	return syncthread.OutcomeOK
}

func userRevokeEventMappingID(userID string, issuedBefore time.Time) string {
	raw := userID + "_" + issuedBefore.UTC().Format(time.RFC3339Nano)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}
