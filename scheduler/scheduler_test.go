package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrio/traderd/lock"
)

type countJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countJob) Name() string { return j.name }

func (j *countJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

// base is a fixed wall-clock minute boundary.
var base = time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, coalesce bool, grace time.Duration) *Scheduler {
	t.Helper()
	m, err := lock.NewManager(t.TempDir(), false, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	s := New(m, coalesce, grace, zerolog.Nop())
	s.now = func() time.Time { return base }
	return s
}

func TestAddRejectsEmptyExpression(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	err := s.Add("", &countJob{name: "sync_balance"})
	assert.Error(t, err, "a job with no trigger must never be registered")
	assert.Empty(t, s.Names())
}

func TestAddRejectsBadExpression(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	err := s.Add("not a cron", &countJob{name: "sync_balance"})
	assert.Error(t, err)
}

func TestAddRejectsDuplicateName(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	require.NoError(t, s.Add("* * * * *", &countJob{name: "sync_balance"}))
	assert.Error(t, s.Add("* * * * *", &countJob{name: "sync_balance"}))
}

func TestFiresDueJob(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	job := &countJob{name: "sync_balance"}
	require.NoError(t, s.Add("* * * * *", job)) // next fire 10:01:00

	s.evaluate(base.Add(30 * time.Second)) // not due yet
	s.wg.Wait()
	assert.Equal(t, int32(0), job.runs.Load())

	s.evaluate(base.Add(61 * time.Second)) // 1s late, within grace
	s.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, Stats{Runs: 1}, s.Stats("sync_balance"))
}

func TestMisfirePastGraceIsSkipped(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	job := &countJob{name: "sync_balance"}
	require.NoError(t, s.Add("* * * * *", job)) // next fire 10:01:00

	// Wake up at 10:10:30: occurrences 10:01..10:09 are older than the
	// one-minute grace and abandoned; 10:10 is 30s late and still runs.
	s.evaluate(base.Add(10*time.Minute + 30*time.Second))
	s.wg.Wait()

	st := s.Stats("sync_balance")
	assert.Equal(t, 9, st.Misfires)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 0, st.Busy, "misfire skips are distinct from lock-busy skips")
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestCoalesceCollapsesMissedRuns(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Hour) // generous grace

	job := &countJob{name: "sync_balance"}
	require.NoError(t, s.Add("* * * * *", job))

	// Five occurrences due (10:01..10:05), one catch-up run.
	s.evaluate(base.Add(5*time.Minute + 30*time.Second))
	s.wg.Wait()

	st := s.Stats("sync_balance")
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 4, st.Coalesced)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestLockBusyFireIsSkippedNotQueued(t *testing.T) {
	t.Parallel()

	m, err := lock.NewManager(t.TempDir(), false, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	s := New(m, true, time.Minute, zerolog.Nop())
	s.now = func() time.Time { return base }

	job := &countJob{name: "sync_balance"}
	require.NoError(t, s.Add("* * * * *", job))

	// Another holder (e.g. a second daemon process) owns the lock.
	h, err := m.Acquire("sync_balance")
	require.NoError(t, err)

	s.evaluate(base.Add(61 * time.Second))
	s.wg.Wait()

	st := s.Stats("sync_balance")
	assert.Equal(t, int32(0), job.runs.Load())
	assert.Equal(t, 1, st.Busy)
	assert.Equal(t, 0, st.Misfires, "lock-busy skips are distinct from misfires")

	require.NoError(t, h.Release())

	// The next occurrence fires normally; the skipped one is not retried.
	s.evaluate(base.Add(121 * time.Second))
	s.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestJobErrorDoesNotStopScheduling(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	failing := &countJob{name: "sync_balance", err: assert.AnError}
	other := &countJob{name: "update_asset_prices"}
	require.NoError(t, s.Add("* * * * *", failing))
	require.NoError(t, s.Add("* * * * *", other))

	s.evaluate(base.Add(61 * time.Second))
	s.wg.Wait()
	s.evaluate(base.Add(121 * time.Second))
	s.wg.Wait()

	assert.Equal(t, int32(2), failing.runs.Load(), "a failing job keeps its schedule")
	assert.Equal(t, int32(2), other.runs.Load(), "sibling jobs are unaffected")
}

type panicJob struct{ name string }

func (j *panicJob) Name() string             { return j.name }
func (j *panicJob) Run(context.Context) error { panic("boom") }

func TestJobPanicReleasesLock(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	require.NoError(t, s.Add("* * * * *", &panicJob{name: "sync_balance"}))

	s.evaluate(base.Add(61 * time.Second))
	s.wg.Wait()

	// Lock must be free again: a RunNow acquisition succeeds.
	h, err := s.locks.Acquire("sync_balance")
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestRunNowBypassesScheduleButNotLock(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t, true, time.Minute)

	job := &countJob{name: "sync_balance"}
	require.NoError(t, s.RunNow(context.Background(), job))
	assert.Equal(t, int32(1), job.runs.Load())

	h, err := s.locks.Acquire("sync_balance")
	require.NoError(t, err)
	err = s.RunNow(context.Background(), job)
	assert.ErrorIs(t, err, lock.ErrBusy)
	assert.Equal(t, int32(1), job.runs.Load())
	require.NoError(t, h.Release())
}
