// Package scheduler drives named jobs off cron triggers. Trigger evaluation
// and job execution are decoupled: the loop only decides what is due, the
// process lock guarantees at most one concurrent run per job name, across
// processes included.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/lock"
)

// Job is a runnable job body. Run must honor per-item failure isolation
// itself; the scheduler only logs the aggregate error.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Stats counts per-job outcomes, with the skip taxonomy kept distinct.
type Stats struct {
	Runs      int
	Misfires  int // occurrences abandoned past the grace window
	Coalesced int // missed occurrences collapsed into one catch-up run
	Busy      int // fires skipped because the lock was held
}

type entry struct {
	job      Job
	schedule cron.Schedule
	next     time.Time
	stats    Stats
}

// Scheduler owns the job set and the evaluation loop.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry

	locks    *lock.Manager
	coalesce bool
	grace    time.Duration
	interval time.Duration
	log      zerolog.Logger

	now func() time.Time
	wg  sync.WaitGroup
}

func New(locks *lock.Manager, coalesce bool, grace time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		entries:  make(map[string]*entry),
		locks:    locks,
		coalesce: coalesce,
		grace:    grace,
		interval: time.Second,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Add registers a job under a standard five-field cron expression.
// Jobs without an expression are simply never added (disabled by omission);
// an empty expression here is a caller bug.
func (s *Scheduler) Add(expr string, job Job) error {
	if expr == "" {
		return fmt.Errorf("job %s: empty cron expression", job.Name())
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("job %s: parse cron %q: %w", job.Name(), expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name()]; ok {
		return fmt.Errorf("job %s: already registered", job.Name())
	}
	s.entries[job.Name()] = &entry{
		job:      job,
		schedule: schedule,
		next:     schedule.Next(s.now()),
	}

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", expr).
		Msg("job registered")
	return nil
}

// Start runs the evaluation loop until ctx is canceled, then waits for
// in-flight jobs. A running job is never canceled mid-flight.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Msg("scheduler started")
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info().Msg("scheduler stopped")
			return
		case <-t.C:
			s.evaluate(s.now())
		}
	}
}

// evaluate fires every due occurrence at now. Occurrences later than the
// grace window are abandoned as misfires; with coalesce, the remaining
// missed occurrences collapse into a single catch-up run.
func (s *Scheduler) evaluate(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		due, misfired := 0, 0
		for !e.next.After(now) {
			if now.Sub(e.next) > s.grace {
				misfired++
			} else {
				due++
			}
			e.next = e.schedule.Next(e.next)
		}

		if misfired > 0 {
			e.stats.Misfires += misfired
			s.log.Info().
				Str("job", e.job.Name()).
				Str("reason", "misfire").
				Int("occurrences", misfired).
				Msg("skipping late occurrences")
		}
		if due == 0 {
			continue
		}
		if s.coalesce && due > 1 {
			e.stats.Coalesced += due - 1
			s.log.Info().
				Str("job", e.job.Name()).
				Str("reason", "coalesced").
				Int("occurrences", due-1).
				Msg("collapsing missed occurrences")
			due = 1
		}

		for i := 0; i < due; i++ {
			s.fire(e)
		}
	}
}

// fire acquires the job's lock and runs the body asynchronously. A busy
// lock is a no-op skip: not an error, never queued for retry.
func (s *Scheduler) fire(e *entry) {
	name := e.job.Name()

	h, err := s.locks.Acquire(name)
	if errors.Is(err, lock.ErrBusy) {
		e.stats.Busy++
		s.log.Info().
			Str("job", name).
			Str("reason", "lock_busy").
			Msg("skipping fire, another run holds the lock")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("lock acquisition failed")
		return
	}

	e.stats.Runs++
	s.wg.Add(1)
	go func() {
		// Release must survive every exit path, panics included.
		defer s.wg.Done()
		defer func() {
			if err := h.Release(); err != nil {
				s.log.Error().Err(err).Str("job", name).Msg("lock release failed")
			}
		}()
		defer func() {
			if p := recover(); p != nil {
				s.log.Error().Str("job", name).Interface("panic", p).Msg("job panicked")
			}
		}()

		// Jobs run to completion once started; shutdown does not cancel them.
		if err := e.job.Run(context.Background()); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	}()
}

// RunNow executes a job immediately, outside its schedule. The lock still
// applies; only the trigger/misfire logic is bypassed.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	name := job.Name()
	h, err := s.locks.Acquire(name)
	if errors.Is(err, lock.ErrBusy) {
		return fmt.Errorf("job %s: %w", name, lock.ErrBusy)
	}
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	defer func() {
		if err := h.Release(); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("lock release failed")
		}
	}()

	s.log.Info().Str("job", name).Msg("running job on demand")
	return job.Run(ctx)
}

// Stats returns a copy of the counters for one job.
func (s *Scheduler) Stats(name string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return e.stats
	}
	return Stats{}
}

// Names returns the registered job names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}
