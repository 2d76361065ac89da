package handlers

import (
	"context"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// RegisterAssignments wires the assignments.create/update/delete
// handlers (spec.md §4.4).
func RegisterAssignments(reg *syncthread.Registry, c Clouds) {
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationCreate, ResourceType: resourceAssignments},
		syncthread.HandlerFunc(c.assignmentsCreate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationUpdate, ResourceType: resourceAssignments},
		syncthread.HandlerFunc(c.assignmentsUpdate))
	reg.Register(syncthread.HandlerKey{Operation: workqueue.OperationDelete, ResourceType: resourceAssignments},
		syncthread.HandlerFunc(c.assignmentsDelete))
}

// assignmentsCreate decomposes the synthetic id, resolves each of
// actor/target/role on the subcloud side, and grants the role there.
//
// By the fixed audit order (spec.md §4.5) users, projects, and roles all
// sync before assignments, so by the time an assignment reaches this
// handler the name-based adoption described in "rationale for name-based
// assignment resolution" has already produced a mapping row for the
// actor, target, and role; resolving by mapping here is resolving by the
// name match the audit engine already performed.
func (c Clouds) assignmentsCreate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	master, err := c.Master.Assignments().Detail(ctx, masterID)
	if err != nil {
		return outcomeFor(err)
	}

	subActor, err := c.resolveActor(ctx, master)
	if err != nil {
		return outcomeFor(err)
	}
	subTarget, err := c.Mapping.GetByMaster(ctx, resourceProjects, master.TargetID, c.Region)
	if err != nil {
		return syncthread.OutcomeRetry
	}
	subRole, err := c.Mapping.GetByMaster(ctx, resourceRoles, master.RoleID, c.Region)
	if err != nil {
		return syncthread.OutcomeRetry
	}

	rec := identity.Assignment{
		Type:      master.Type,
		ActorID:   subActor,
		TargetID:  subTarget,
		RoleID:    subRole,
		Inherited: master.Inherited,
	}
	created, err := c.Subcloud.Assignments().Create(ctx, rec)
	if err != nil {
		return outcomeFor(err)
	}
	if err := c.Mapping.Put(ctx, resourceAssignments, masterID, c.Region, created.SyntheticID()); err != nil {
		return syncthread.OutcomeRetry
	}
	return syncthread.OutcomeOK
}

// resolveActor maps a master assignment's actor id through the users
// mapping. Group actors have no resource type modeled in this engine
// (groups are out of scope) and are treated as fatal.
func (c Clouds) resolveActor(ctx context.Context, master identity.Assignment) (string, error) {
	if master.Type == identity.AssignmentGroupProject || master.Type == identity.AssignmentGroupDomain {
		return "", syncthread.ErrUnsupportedActor
	}
	return c.Mapping.GetByMaster(ctx, resourceUsers, master.ActorID, c.Region)
}

// assignmentsUpdate is a no-op: an assignment's composite key leaves
// nothing mutable (spec.md §4.4 assignments.update).
func (c Clouds) assignmentsUpdate(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	return syncthread.OutcomeOK
}

// assignmentsDelete resolves the subcloud composite id from the mapping
// store and revokes it; a NotFound is success (spec.md §4.4
// assignments.delete).
func (c Clouds) assignmentsDelete(ctx context.Context, item syncthread.Item) syncthread.Outcome {
	masterID := item.Request.SourceResourceID

	subID, err := c.Mapping.GetByMaster(ctx, resourceAssignments, masterID, c.Region)
	if err != nil {
		return syncthread.OutcomeOK
	}
	if err := c.Subcloud.Assignments().Delete(ctx, subID); err != nil {
		return outcomeFor(err)
	}
	_ = c.Mapping.Delete(ctx, resourceAssignments, masterID, c.Region)
	return syncthread.OutcomeOK
}
