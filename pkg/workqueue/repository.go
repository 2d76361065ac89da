package workqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	"github.com/distributedcloud/identity-sync-engine/pkg/metrics"
	"github.com/distributedcloud/identity-sync-engine/pkg/store"
)

// Repository persists Jobs and Requests against the local transactional
// store, following the hand-written-SQL-repository idiom (injected
// logger, explicit query strings, typed rows) the pack's
// jordigilh-kubernaut repo tests exercise for its own repositories.
type Repository struct {
	db     *store.DB
	logger logr.Logger
}

// NewRepository builds a Repository over db.
func NewRepository(db *store.DB, logger logr.Logger) *Repository {
	return &Repository{db: db, logger: logger.WithName("workqueue")}
}

// Enqueue implements spec.md §4.3's at-least-once, coalescing enqueue: it
// creates the Job and one Request per target region, or folds onto an
// existing queued Request with the same Key.
func (r *Repository) Enqueue(ctx context.Context, endpointType string, job Job, targets ...string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var jobID int64
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO orch_job (operation_type, resource_type, source_resource_id, resource_info)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			job.OperationType, job.ResourceType, job.SourceResourceID, job.ResourceInfo,
		).Scan(&jobID)
		if err != nil {
			return fmt.Errorf("workqueue: insert job: %w", err)
		}

		for _, target := range targets {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO orch_request
					(orch_job_id, target_region, endpoint_type, resource_type,
					 source_resource_id, operation_type)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (target_region, resource_type, source_resource_id, operation_type)
					WHERE state = 'queued'
				DO UPDATE SET orch_job_id = EXCLUDED.orch_job_id, updated_at = now()`,
				jobID, target, endpointType, job.ResourceType, job.SourceResourceID, job.OperationType,
			)
			if err != nil {
				return fmt.Errorf("workqueue: enqueue request for %s: %w", target, err)
			}
		}
		return nil
	})
}

// Drain returns the queued requests for one (subcloud, endpoint_type)
// scope in insertion order, matching spec.md §4.4 step 2. The query runs
// outside a transaction, so its FOR UPDATE SKIP LOCKED row locks last only
// for the statement itself; a single claimant per row follows from there
// being one sync thread per (subcloud, endpoint_type).
func (r *Repository) Drain(ctx context.Context, targetRegion, endpointType string, limit int) ([]Request, error) {
	rows := []Request{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, orch_job_id, target_region, endpoint_type, resource_type,
		       source_resource_id, operation_type, state, attempts, sequence,
		       next_attempt_at, created_at, updated_at
		FROM orch_request
		WHERE target_region = $1 AND endpoint_type = $2
		  AND state = 'queued' AND next_attempt_at <= now()
		ORDER BY sequence ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		targetRegion, endpointType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("workqueue: drain: %w", err)
	}
	return rows, nil
}

// CountQueued reports how many requests remain queued for one
// (subcloud, endpoint_type, resource_type) scope, used by the sync
// thread's in-sync promotion check (spec.md §4.4 step 7).
func (r *Repository) CountQueued(ctx context.Context, targetRegion, endpointType, resourceType string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT count(*) FROM orch_request
		WHERE target_region = $1 AND endpoint_type = $2 AND resource_type = $3
		  AND state = 'queued'`,
		targetRegion, endpointType, resourceType,
	)
	if err != nil {
		return 0, fmt.Errorf("workqueue: count queued: %w", err)
	}
	metrics.QueueDepth.WithLabelValues(targetRegion, endpointType, resourceType).Set(float64(n))
	return n, nil
}

// ResourceInfo fetches the inline JSON payload of the OrchJob backing a
// request, which the handler catalog decodes into the resource record it
// is pushing (spec.md §4.4 step 3).
func (r *Repository) ResourceInfo(ctx context.Context, jobID int64) ([]byte, error) {
	var info []byte
	err := r.db.GetContext(ctx, &info, `SELECT resource_info FROM orch_job WHERE id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("workqueue: resource info: %w", err)
	}
	return info, nil
}

// MarkInProgress transitions a request to in-progress before dispatch.
func (r *Repository) MarkInProgress(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orch_request SET state = 'in-progress', updated_at = now() WHERE id = $1`, id)
	return err
}

// Complete marks a request completed (spec.md §4.4 step 3 success path).
func (r *Repository) Complete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orch_request SET state = 'completed', updated_at = now() WHERE id = $1`, id)
	return err
}

// Fail moves a request to failed permanently (spec.md §4.4 step 6).
func (r *Repository) Fail(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orch_request SET state = 'failed', updated_at = now() WHERE id = $1`, id)
	return err
}

// Requeue returns a request to queued with a computed next-attempt time
// and incremented attempt count (spec.md §4.4 steps 4-5).
func (r *Repository) Requeue(ctx context.Context, id int64, nextAttemptAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orch_request
		SET state = 'queued', attempts = attempts + 1,
		    next_attempt_at = $2, updated_at = now()
		WHERE id = $1`, id, nextAttemptAt)
	return err
}

// DeleteJobIfTerminal removes an OrchJob once every OrchRequest against it
// is terminal (spec.md §3 invariant).
func (r *Repository) DeleteJobIfTerminal(ctx context.Context, jobID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM orch_job
		WHERE id = $1
		  AND NOT EXISTS (
		    SELECT 1 FROM orch_request
		    WHERE orch_job_id = $1 AND state NOT IN ('completed', 'failed', 'aborted')
		  )`, jobID)
	return err
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("workqueue: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
