// Package queue implements the durable, at-least-once generation work queue.
// Jobs live in Postgres; the entity status column and the job row are the
// only shared mutable state in the pipeline, and every transition touching
// them happens inside one transaction.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ErrNoJob is returned by Claim when no pending job exists.
var ErrNoJob = errors.New("no job available")

// DB is the storage contract the queue needs: plain statement execution plus
// transactions. *pgxpool.Pool satisfies it.
type DB interface {
	infra.SQLExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier wakes idle workers after an enqueue so they claim immediately
// instead of waiting out the poll interval. Optional; nil means poll-only.
type Notifier interface {
	NotifyJobReady(ctx context.Context, jobType domain.JobType)
}

// EventPublisher is the slice of the event fan-out the queue needs. The
// queue only emits; subscription lives with the HTTP layer.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

var entityTables = map[domain.EntityType]string{
	domain.EntityTypePodcast:     "podcasts",
	domain.EntityTypeVoiceover:   "voiceovers",
	domain.EntityTypeInfographic: "infographics",
}

type Queue struct {
	db        DB
	runner    *infra.SQLRunner
	publisher EventPublisher
	notifier  Notifier
	logger    infra.Logger
	metrics   *infra.Metrics
}

func New(db DB, runner *infra.SQLRunner, publisher EventPublisher, logger infra.Logger) *Queue {
	return &Queue{db: db, runner: runner, publisher: publisher, logger: logger}
}

// WithNotifier attaches the optional worker wakeup channel.
func (q *Queue) WithNotifier(n Notifier) *Queue {
	q.notifier = n
	return q
}

// WithMetrics attaches the optional metrics bundle.
func (q *Queue) WithMetrics(m *infra.Metrics) *Queue {
	q.metrics = m
	return q
}

// Enqueue creates a job for the entity after checking the state machine
// guard, all inside one transaction with the entity row locked. If a pending
// or processing job already exists for (entityID, jobType) the existing job
// is returned unchanged and created is false: callers must not assume a fresh
// job was made. On success the entity has moved to its generating status with
// any previous error cleared.
func (q *Queue) Enqueue(ctx context.Context, entityID string, entityType domain.EntityType, jobType domain.JobType, payload []byte) (job *domain.Job, created bool, err error) {
	table, ok := entityTables[entityType]
	if !ok {
		return nil, false, domain.NewError(domain.KindValidation, "unknown entity type %q", entityType)
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	tx, err := q.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status domain.Status
	var ownerID string
	lockQuery := fmt.Sprintf(`SELECT status, created_by FROM %s WHERE id = $1 FOR UPDATE`, table)
	if err := tx.QueryRow(ctx, lockQuery, entityID).Scan(&status, &ownerID); err != nil {
		if infra.IsNoRows(err) {
			return nil, false, domain.ErrNotFound(string(entityType))
		}
		return nil, false, fmt.Errorf("enqueue: lock entity: %w", err)
	}

	existing := &domain.Job{EntityID: entityID, EntityType: entityType, JobType: jobType}
	err = tx.QueryRow(ctx, `
SELECT id, status, payload, created_at
FROM generation_jobs
WHERE entity_id = $1 AND job_type = $2 AND status IN ('pending', 'processing')
LIMIT 1`, entityID, jobType).Scan(&existing.ID, &existing.Status, &existing.Payload, &existing.CreatedAt)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("enqueue: commit: %w", err)
		}
		return existing, false, nil
	}
	if !infra.IsNoRows(err) {
		return nil, false, fmt.Errorf("enqueue: find existing job: %w", err)
	}

	if err := domain.CanStart(entityType, jobType, status); err != nil {
		return nil, false, err
	}
	running, err := domain.RunningStatus(entityType, jobType)
	if err != nil {
		return nil, false, err
	}

	job = &domain.Job{
		EntityID:   entityID,
		EntityType: entityType,
		JobType:    jobType,
		Status:     domain.JobStatusPending,
		Payload:    payload,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO generation_jobs (entity_id, entity_type, job_type, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`, entityID, entityType, jobType, payload).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue: insert job: %w", err)
	}

	statusQuery := fmt.Sprintf(`UPDATE %s SET status = $2, error_message = '', updated_at = now() WHERE id = $1`, table)
	if _, err := tx.Exec(ctx, statusQuery, entityID, running); err != nil {
		return nil, false, fmt.Errorf("enqueue: update entity status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("enqueue: commit: %w", err)
	}

	if q.metrics != nil {
		q.metrics.JobsEnqueued.WithLabelValues(string(entityType), string(jobType)).Inc()
	}
	if q.notifier != nil {
		q.notifier.NotifyJobReady(ctx, jobType)
	}
	q.publisher.Publish(ctx, domain.EntityChangeEvent(ownerID, entityType, entityID, domain.ChangeUpdate))
	return job, true, nil
}

// Claim atomically takes ownership of the oldest pending job for workerID.
// Safe under any number of concurrent claimers.
func (q *Queue) Claim(ctx context.Context, workerID string) (*domain.Job, error) {
	row := q.runner.QueryRow(ctx, sqlinline.QClaimJob, workerID)
	job := &domain.Job{Status: domain.JobStatusProcessing, ClaimedBy: workerID}
	if err := row.Scan(&job.ID, &job.EntityID, &job.EntityType, &job.JobType, &job.Payload, &job.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("claim: %w", err)
	}
	// Ensure payload bytes are not aliased.
	job.Payload = append([]byte(nil), job.Payload...)
	return job, nil
}

// Complete moves a processing job to its terminal completed state, advances
// the entity to the next success status and publishes exactly one completion
// event. Completing an already-terminal job is a no-op and publishes nothing.
func (q *Queue) Complete(ctx context.Context, jobID string, result []byte) error {
	return q.finish(ctx, jobID, domain.JobStatusCompleted, result, "")
}

// Fail moves a processing job to its terminal failed state, marks the entity
// failed with the error message stored, and publishes exactly one completion
// event. Failing an already-terminal job is a no-op.
func (q *Queue) Fail(ctx context.Context, jobID, message string) error {
	if message == "" {
		message = "generation failed"
	}
	return q.finish(ctx, jobID, domain.JobStatusFailed, nil, message)
}

func (q *Queue) finish(ctx context.Context, jobID string, terminal domain.JobStatus, result []byte, message string) error {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("finish job: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	job := &domain.Job{ID: jobID, Status: terminal, Result: result, ErrorMessage: message}
	err = tx.QueryRow(ctx, `
UPDATE generation_jobs
SET status = $2, result = coalesce($3, result), error_message = $4, completed_at = now()
WHERE id = $1 AND status = 'processing'
RETURNING entity_id, entity_type, job_type`, jobID, terminal, nullableBytes(result), message).
		Scan(&job.EntityID, &job.EntityType, &job.JobType)
	if err != nil {
		if infra.IsNoRows(err) {
			return q.finishMissed(ctx, tx, jobID)
		}
		return fmt.Errorf("finish job: update: %w", err)
	}

	table, ok := entityTables[job.EntityType]
	if !ok {
		return domain.NewError(domain.KindInternal, "job %s references unknown entity type %q", jobID, job.EntityType)
	}

	var entityStatus domain.Status
	var errorMessage string
	if terminal == domain.JobStatusCompleted {
		entityStatus, err = domain.SuccessStatus(job.EntityType, job.JobType)
		if err != nil {
			return err
		}
	} else {
		entityStatus = domain.StatusFailed
		errorMessage = message
	}

	var ownerID string
	statusQuery := fmt.Sprintf(`UPDATE %s SET status = $2, error_message = $3, updated_at = now() WHERE id = $1 RETURNING created_by`, table)
	if err := tx.QueryRow(ctx, statusQuery, job.EntityID, entityStatus, errorMessage).Scan(&ownerID); err != nil {
		return fmt.Errorf("finish job: update entity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("finish job: commit: %w", err)
	}

	q.publisher.Publish(ctx, domain.JobCompletionEvent(ownerID, job))
	q.publisher.Publish(ctx, domain.EntityChangeEvent(ownerID, job.EntityType, job.EntityID, domain.ChangeUpdate))
	return nil
}

// finishMissed decides what a terminal-transition miss means: terminal jobs
// make the call an idempotent no-op, pending jobs are a caller bug, and a
// missing row is not found.
func (q *Queue) finishMissed(ctx context.Context, tx pgx.Tx, jobID string) error {
	var current domain.JobStatus
	err := tx.QueryRow(ctx, `SELECT status FROM generation_jobs WHERE id = $1`, jobID).Scan(&current)
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound("job")
		}
		return fmt.Errorf("finish job: inspect status: %w", err)
	}
	if current.Terminal() {
		return nil
	}
	return domain.NewError(domain.KindConflict, "job %s is %s, not processing", jobID, current)
}

// GetStatus loads a job by id.
func (q *Queue) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	row := q.runner.QueryRow(ctx, sqlinline.QSelectJob, jobID)
	job := &domain.Job{}
	var claimedBy *string
	err := row.Scan(&job.ID, &job.EntityID, &job.EntityType, &job.JobType, &job.Status,
		&job.Payload, &job.Result, &job.ErrorMessage, &claimedBy, &job.ClaimedAt,
		&job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound("job")
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	if claimedBy != nil {
		job.ClaimedBy = *claimedBy
	}
	return job, nil
}

// ReclaimStale returns processing jobs claimed longer than olderThan ago to
// pending. Run periodically by the worker binary; this is the recovery path
// for jobs orphaned by a worker crash.
func (q *Queue) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := q.runner.Exec(ctx, sqlinline.QReclaimStaleJobs, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	reclaimed := tag.RowsAffected()
	if reclaimed > 0 {
		q.logger.Warn().Int64("count", reclaimed).Msg("queue: reclaimed stale processing jobs")
		if q.metrics != nil {
			q.metrics.JobsReclaimed.Add(float64(reclaimed))
		}
	}
	return reclaimed, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
