package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/metrics"
)

type stubLockStore struct {
	acquired bool
	setErr   error
	deleted  []string
}

func (s *stubLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	return s.acquired, nil
}

func (s *stubLockStore) Del(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func (s *stubLockStore) LockKey(name string) string {
	return "opsdesk:lock:" + name
}

type recordedJob struct {
	name string
	runs int
	err  error
}

func (j *recordedJob) Name() string {
	return j.name
}

func (j *recordedJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func newTestRunner(t *testing.T, locks *stubLockStore) *Runner {
	t.Helper()
	runner, err := NewRunner(locks, metrics.NewCronJobMetrics(nil), testLogger(), config.CronConfig{
		TickInterval: time.Minute,
		LockTTL:      5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestRunOnceRunsJobsWhenLockAcquired(t *testing.T) {
	locks := &stubLockStore{acquired: true}
	runner := newTestRunner(t, locks)
	first := &recordedJob{name: "first"}
	second := &recordedJob{name: "second", err: errors.New("boom")}
	runner.Register(first)
	runner.Register(second)

	runner.RunOnce(context.Background())

	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected both jobs run once, got %d and %d", first.runs, second.runs)
	}
	if len(locks.deleted) != 1 || locks.deleted[0] != "opsdesk:lock:cron" {
		t.Fatalf("expected lock released, got %v", locks.deleted)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locks := &stubLockStore{acquired: false}
	runner := newTestRunner(t, locks)
	job := &recordedJob{name: "job"}
	runner.Register(job)

	runner.RunOnce(context.Background())

	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d times", job.runs)
	}
	if len(locks.deleted) != 0 {
		t.Fatalf("lock should not be released when never acquired")
	}
}

func TestRunOnceSkipsOnLockError(t *testing.T) {
	locks := &stubLockStore{setErr: errors.New("redis down")}
	runner := newTestRunner(t, locks)
	job := &recordedJob{name: "job"}
	runner.Register(job)

	runner.RunOnce(context.Background())

	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d times", job.runs)
	}
}
