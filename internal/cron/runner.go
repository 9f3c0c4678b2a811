package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/metrics"
)

const lockName = "cron"

// Job is a unit of scheduled work. Jobs are expected to be idempotent; the
// runner may execute them again after a missed lock or restart.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// Runner executes registered jobs on a fixed tick, holding a redis lock so
// only one worker instance runs at a time.
type Runner struct {
	jobs    []Job
	locks   lockStore
	metrics *metrics.CronJobMetrics
	logg    *logger.Logger
	cfg     config.CronConfig
	now     func() time.Time
}

// NewRunner builds a job runner backed by the provided lock store.
func NewRunner(locks lockStore, jobMetrics *metrics.CronJobMetrics, logg *logger.Logger, cfg config.CronConfig) (*Runner, error) {
	if locks == nil {
		return nil, fmt.Errorf("lock store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Runner{
		locks:   locks,
		metrics: jobMetrics,
		logg:    logg,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// Register appends a job to the run order.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start ticks until the context is cancelled. The first pass runs immediately.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce acquires the lock and runs every registered job. When another
// instance holds the lock the pass is skipped silently.
func (r *Runner) RunOnce(ctx context.Context) {
	key := r.locks.LockKey(lockName)
	acquired, err := r.locks.SetNX(ctx, key, r.now().UTC().Format(time.RFC3339), r.cfg.LockTTL)
	if err != nil {
		r.logg.Error(ctx, "acquire cron lock", err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := r.locks.Del(ctx, key); err != nil {
			r.logg.Error(ctx, "release cron lock", err)
		}
	}()

	for _, job := range r.jobs {
		r.runJob(ctx, job)
	}
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	jobCtx := r.logg.WithField(ctx, "job", job.Name())
	started := r.now()
	err := job.Run(jobCtx)
	r.metrics.ObserveDuration(job.Name(), r.now().Sub(started))
	if err != nil {
		r.metrics.IncFailure(job.Name())
		r.logg.Error(jobCtx, "cron job failed", err)
		return
	}
	r.metrics.IncSuccess(job.Name())
	r.logg.Info(jobCtx, "cron job completed")
}

// collect folds a per-item error into the job's aggregate without aborting
// the sweep.
func collect(agg error, err error) error {
	return multierr.Append(agg, err)
}
