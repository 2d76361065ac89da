// Package handlers is the per-resource-type handler catalog of
// spec.md §4.4, one syncthread.Handler implementation per
// (operation_type, resource_type) pair. Each handler is pure of the sync
// loop's own retry/backoff bookkeeping (pkg/syncthread owns that); a
// handler's only job is to do the one push and classify its own failure.
//
// Grounded on the teacher's reconciler pattern of small, single-purpose
// step functions returning a classified outcome rather than a raw error.
package handlers

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/distributedcloud/identity-sync-engine/pkg/dbsyncclient"
	"github.com/distributedcloud/identity-sync-engine/pkg/logging"
	"github.com/distributedcloud/identity-sync-engine/pkg/mapping"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncerrors"
	"github.com/distributedcloud/identity-sync-engine/pkg/syncthread"
)

// Clouds bundles the two dbsync clients a handler pushes between: the
// system controller (master) and the one subcloud this thread serves.
type Clouds struct {
	Master   *dbsyncclient.Client
	Subcloud *dbsyncclient.Client
	Mapping  *mapping.Repository
	Region   string
}

// outcomeFor classifies err into a syncthread.Outcome via the taxonomy
// table of spec.md §7; a nil err is OutcomeOK.
func outcomeFor(err error) syncthread.Outcome {
	if err == nil {
		return syncthread.OutcomeOK
	}
	var se *syncerrors.Error
	if ok := asSyncError(err, &se); ok {
		return syncthread.FromKind(se.Kind)
	}
	return syncthread.OutcomeFatal
}

func asSyncError(err error, target **syncerrors.Error) bool {
	for err != nil {
		if se, ok := err.(*syncerrors.Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func logFor(ctx context.Context, op string) logr.Logger {
	return logging.FromContext(ctx).WithName("handlers").WithValues("op", op)
}

// Register wires every handler in this catalog into reg, for the three
// value resource types (users, projects, roles) plus assignments and
// revoke events (spec.md §4.4).
func Register(reg *syncthread.Registry, c Clouds) {
	RegisterUsers(reg, c)
	RegisterProjects(reg, c)
	RegisterRoles(reg, c)
	RegisterAssignments(reg, c)
	RegisterRevokeEvents(reg, c)
}

const (
	resourceUsers            = "users"
	resourceProjects         = "projects"
	resourceRoles            = "roles"
	resourceAssignments      = "assignments"
	resourceRevokeEvents     = "revoke_events"
	resourceUserRevokeEvents = "user_revoke_events"
)
