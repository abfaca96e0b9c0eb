// Package worker runs the generation pipeline's claim-execute loop. A pool
// claims jobs from the queue, executes them with a per-job deadline and
// reports the terminal outcome back; a background sweep returns jobs orphaned
// by a crashed worker to pending.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/queue"
)

// JobSource is the queue surface the pool consumes.
type JobSource interface {
	Claim(ctx context.Context, workerID string) (*domain.Job, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	Fail(ctx context.Context, jobID, message string) error
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Executor runs one claimed job and returns the result document persisted on
// the job row. A returned error fails the job; it never stops the pool.
type Executor interface {
	Execute(ctx context.Context, job *domain.Job) ([]byte, error)
}

// Config sizes the pool. Zero values fall back to the defaults below.
type Config struct {
	Count        int
	WorkerID     string
	PollInterval time.Duration
	JobTimeout   time.Duration
	ReclaimAfter time.Duration
}

const (
	defaultCount        = 2
	defaultPollInterval = 2 * time.Second
	defaultJobTimeout   = 5 * time.Minute
	defaultReclaimAfter = 10 * time.Minute

	reclaimSweepInterval = time.Minute
)

type Pool struct {
	source   JobSource
	executor Executor
	cfg      Config
	logger   infra.Logger
	metrics  *infra.Metrics
	wakeups  <-chan struct{}
}

func NewPool(source JobSource, executor Executor, cfg Config, logger infra.Logger) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = defaultCount
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if cfg.ReclaimAfter <= 0 {
		cfg.ReclaimAfter = defaultReclaimAfter
	}
	return &Pool{source: source, executor: executor, cfg: cfg, logger: logger}
}

// WithWakeups attaches an optional channel that interrupts the poll sleep so
// freshly enqueued jobs are claimed immediately.
func (p *Pool) WithWakeups(ch <-chan struct{}) *Pool {
	p.wakeups = ch
	return p
}

// WithMetrics attaches the optional metrics bundle.
func (p *Pool) WithMetrics(m *infra.Metrics) *Pool {
	p.metrics = m
	return p
}

// Run starts the workers plus the reclaim sweep and blocks until ctx is
// cancelled and every worker has finished its in-flight job.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info().Int("count", p.cfg.Count).Msg("worker: pool started")
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Count; i++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}(fmt.Sprintf("%s-%d", p.cfg.WorkerID, i))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runReclaim(ctx)
	}()
	wg.Wait()
	p.logger.Info().Msg("worker: pool stopped")
	return ctx.Err()
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.source.Claim(ctx, workerID)
		if err != nil {
			if !errors.Is(err, queue.ErrNoJob) {
				p.logger.Error().Err(err).Str("worker_id", workerID).Msg("worker: claim failed")
			}
			p.waitForWork(ctx)
			continue
		}

		p.handleJob(ctx, workerID, job)
	}
}

// waitForWork sleeps out the poll interval, returning early on a wakeup
// broadcast or shutdown.
func (p *Pool) waitForWork(ctx context.Context) {
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-p.wakeups:
	}
}

func (p *Pool) handleJob(ctx context.Context, workerID string, job *domain.Job) {
	p.logger.Info().
		Str("worker_id", workerID).
		Str("job_id", job.ID).
		Str("job_type", string(job.JobType)).
		Str("entity_id", job.EntityID).
		Msg("worker: picked job")

	started := time.Now()
	result, err := p.execute(ctx, job)
	elapsed := time.Since(started)

	// The job's own deadline may have fired; reporting the outcome uses the
	// pool context so the terminal transition still lands.
	status := "completed"
	if err != nil {
		status = "failed"
		p.logger.Error().Err(err).Str("job_id", job.ID).Dur("elapsed", elapsed).Msg("worker: job failed")
		if failErr := p.source.Fail(ctx, job.ID, err.Error()); failErr != nil {
			p.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("worker: recording failure failed")
		}
	} else {
		p.logger.Info().Str("job_id", job.ID).Dur("elapsed", elapsed).Msg("worker: job done")
		if compErr := p.source.Complete(ctx, job.ID, result); compErr != nil {
			p.logger.Error().Err(compErr).Str("job_id", job.ID).Msg("worker: recording completion failed")
		}
	}

	if p.metrics != nil {
		p.metrics.JobsProcessed.WithLabelValues(string(job.JobType), status).Inc()
		p.metrics.JobDuration.WithLabelValues(string(job.JobType)).Observe(elapsed.Seconds())
	}
}

// execute runs the job under its deadline. A panicking executor fails the
// job instead of taking the worker down.
func (p *Pool) execute(ctx context.Context, job *domain.Job) (result []byte, err error) {
	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	result, err = p.executor.Execute(jobCtx, job)
	if err == nil && jobCtx.Err() != nil {
		err = fmt.Errorf("job exceeded %s deadline", p.cfg.JobTimeout)
	}
	return result, err
}

func (p *Pool) runReclaim(ctx context.Context) {
	ticker := time.NewTicker(reclaimSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.source.ReclaimStale(ctx, p.cfg.ReclaimAfter); err != nil {
				p.logger.Error().Err(err).Msg("worker: reclaim sweep failed")
			}
		}
	}
}
