package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/config"
	"github.com/distributedcloud/identity-sync-engine/pkg/dbsyncclient"
	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
	"github.com/distributedcloud/identity-sync-engine/pkg/mapping"
	"github.com/distributedcloud/identity-sync-engine/pkg/metrics"
	"github.com/distributedcloud/identity-sync-engine/pkg/workqueue"
)

// Engine is the impure driver of the audit algorithm (spec.md §4.5): it
// lists both clouds, calls Diff, and turns the resulting Actions into
// enqueued work and mapping-store writes. One Engine serves every
// subcloud; RunOnce is called per (subcloud, endpoint_type) on the
// configured cadence and on demand for an initial sync.
type Engine struct {
	queue   *workqueue.Repository
	mapping *mapping.Repository
	cfg     config.AuditConfig
	logger  logr.Logger

	// OnResult, if set, is called after each resource type's pass with
	// whether that pass was clean (no create/update/delete work enqueued), feeding the
	// sync thread's "last audit for that type is clean" in-sync check
	// (spec.md §4.4 step 7).
	OnResult func(region, resourceType string, clean bool)
}

// NewEngine builds an Engine.
func NewEngine(queue *workqueue.Repository, mappingRepo *mapping.Repository, cfg config.AuditConfig, logger logr.Logger) *Engine {
	return &Engine{queue: queue, mapping: mappingRepo, cfg: cfg, logger: logger.WithName("audit")}
}

// RunOnce walks every resource type in spec.md §4.5's fixed,
// dependency-respecting order against one (region, endpointType) scope.
func (e *Engine) RunOnce(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	start := time.Now()
	defer func() { metrics.AuditPassDuration.WithLabelValues(region).Observe(time.Since(start).Seconds()) }()

	for _, rt := range identity.AuditOrder {
		var err error
		switch rt {
		case identity.ResourceTypeUser:
			err = e.auditUsers(ctx, region, endpointType, master, subcloud)
		case identity.ResourceTypeProject:
			err = e.auditProjects(ctx, region, endpointType, master, subcloud)
		case identity.ResourceTypeRole:
			err = e.auditRoles(ctx, region, endpointType, master, subcloud)
		case identity.ResourceTypeAssignment:
			err = e.auditAssignments(ctx, region, endpointType, master, subcloud)
		case identity.ResourceTypeRevokeEvent:
			err = e.auditRevokeEvents(ctx, region, endpointType, master, subcloud)
		case identity.ResourceTypeUserRevokeEvt:
			err = e.auditUserRevokeEvents(ctx, region, endpointType, master, subcloud)
		}
		if err != nil {
			return fmt.Errorf("audit: %s: %w", rt, err)
		}
	}
	return nil
}

func (e *Engine) auditUsers(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.Users().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.Users().List(ctx)
	if err != nil {
		return err
	}
	excluded := append(append([]string{}, e.cfg.ExcludedUsers...), config.CinderUserFor(region))
	keep := NotExcluded[identity.User](excluded)
	return applyDiff(ctx, e, string(identity.ResourceTypeUser), region, endpointType, m, s, keep)
}

func (e *Engine) auditProjects(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.Projects().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.Projects().List(ctx)
	if err != nil {
		return err
	}
	keep := NotExcluded[identity.Project](e.cfg.ExcludedProjects)
	return applyDiff(ctx, e, string(identity.ResourceTypeProject), region, endpointType, m, s, keep)
}

func (e *Engine) auditRoles(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.Roles().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.Roles().List(ctx)
	if err != nil {
		return err
	}
	keep := NotExcluded[identity.Role](e.cfg.ExcludedRoles)
	return applyDiff(ctx, e, string(identity.ResourceTypeRole), region, endpointType, m, s, keep)
}

// auditAssignments additionally skips domain-scoped assignments entirely,
// per spec.md §4.5.
func (e *Engine) auditAssignments(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.Assignments().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.Assignments().List(ctx)
	if err != nil {
		return err
	}
	keep := func(a identity.Assignment) bool { return !a.Type.IsDomainScoped() }
	return applyDiff(ctx, e, string(identity.ResourceTypeAssignment), region, endpointType, m, s, keep)
}

// auditRevokeEvents audits only the revocation-command-issued events: the
// source filters its revoke_events list to audit_id is not None before
// diffing (original source's _get_revoke_events_resource), since a
// password-change event (audit_id empty, user_id set) belongs to the
// disjoint user_revoke_events pass instead.
func (e *Engine) auditRevokeEvents(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.RevokeEvents().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.RevokeEvents().List(ctx)
	if err != nil {
		return err
	}
	return applyDiff[identity.RevokeEvent](ctx, e, string(identity.ResourceTypeRevokeEvent), region, endpointType, filterByAuditID(m), filterByAuditID(s), nil)
}

// auditUserRevokeEvents audits the per-user revocation variant over the
// same backing list, filtered to user_id is not None (the disjoint
// complement of auditRevokeEvents' filter) and diffed keyed on user_id
// rather than audit_id, since that is this resource type's id
// (original source's get_resource_id).
func (e *Engine) auditUserRevokeEvents(ctx context.Context, region, endpointType string, master, subcloud *dbsyncclient.Client) error {
	m, err := master.RevokeEvents().List(ctx)
	if err != nil {
		return err
	}
	s, err := subcloud.RevokeEvents().List(ctx)
	if err != nil {
		return err
	}
	return applyDiff[identity.UserRevokeEvent](ctx, e, string(identity.ResourceTypeUserRevokeEvt), region, endpointType, filterByUserID(m), filterByUserID(s), nil)
}

// filterByAuditID keeps only revoke events with a non-empty audit_id.
func filterByAuditID(events []identity.RevokeEvent) []identity.RevokeEvent {
	out := make([]identity.RevokeEvent, 0, len(events))
	for _, ev := range events {
		if ev.AuditID != "" {
			out = append(out, ev)
		}
	}
	return out
}

// filterByUserID keeps only revoke events with a non-empty user_id,
// wrapped as identity.UserRevokeEvent so Diff keys them by user_id.
func filterByUserID(events []identity.RevokeEvent) []identity.UserRevokeEvent {
	out := make([]identity.UserRevokeEvent, 0, len(events))
	for _, ev := range events {
		if ev.UserID != "" {
			out = append(out, identity.UserRevokeEvent{RevokeEvent: ev})
		}
	}
	return out
}

// applyDiff runs Diff over one resource type's already-listed
// master/subcloud records and turns the result into enqueues and
// mapping-store writes. It is a free function, not a method, because Go
// methods cannot introduce new type parameters.
//
// An empty master list is treated as "skip this pass" rather than as
// license to delete every subcloud record of this type: a transient
// partial failure of master.List (returning zero records without an
// error) must never be read as "the master deleted everything" (Open
// Question decision, DESIGN.md).
func applyDiff[T identity.Comparable](ctx context.Context, e *Engine, resourceType, region, endpointType string, master, subcloud []T, keep func(T) bool) error {
	if len(master) == 0 {
		e.logger.Info("skipping audit pass: empty master list", "resourceType", resourceType, "region", region)
		return nil
	}

	masterByID := make(map[string]T, len(master))
	for _, m := range master {
		masterByID[m.PrimaryKey()] = m
	}

	actions := Diff(master, subcloud, keep)
	clean := true
	for _, a := range actions {
		switch a.Kind {
		case ActionCreate:
			clean = false
			if err := enqueueWithPayload(ctx, e, workqueue.OperationCreate, resourceType, endpointType, region, a.MasterID, masterByID[a.MasterID]); err != nil {
				return err
			}
		case ActionUpdate:
			clean = false
			if err := enqueueWithPayload(ctx, e, workqueue.OperationUpdate, resourceType, endpointType, region, a.MasterID, masterByID[a.MasterID]); err != nil {
				return err
			}
		case ActionEnsureMapping, ActionAdopt:
			if err := e.mapping.Put(ctx, resourceType, a.MasterID, region, a.SubcloudID); err != nil {
				return err
			}
		case ActionUnmatchedSubcloud:
			masterID, err := e.mapping.GetBySubcloud(ctx, resourceType, region, a.SubcloudID)
			if errors.Is(err, mapping.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			clean = false
			if err := enqueueNoPayload(ctx, e, workqueue.OperationDelete, resourceType, endpointType, region, masterID); err != nil {
				return err
			}
		}
	}
	if e.OnResult != nil {
		e.OnResult(region, resourceType, clean)
	}
	return nil
}

func enqueueWithPayload[T any](ctx context.Context, e *Engine, op workqueue.OperationType, resourceType, endpointType, region, masterID string, rec T) error {
	info, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal resource: %w", err)
	}
	return e.queue.Enqueue(ctx, endpointType, workqueue.Job{
		OperationType:    op,
		ResourceType:     resourceType,
		SourceResourceID: masterID,
		ResourceInfo:     info,
	}, region)
}

func enqueueNoPayload(ctx context.Context, e *Engine, op workqueue.OperationType, resourceType, endpointType, region, masterID string) error {
	return e.queue.Enqueue(ctx, endpointType, workqueue.Job{
		OperationType:    op,
		ResourceType:     resourceType,
		SourceResourceID: masterID,
	}, region)
}
