// Package scheduler is a minute-resolution in-process job runner. Each job
// holds a single-instance guard: a tick arriving while the previous run is
// still going is skipped, which also coalesces any backlog of missed ticks.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/burntop/burntop/internal/logger"
)

// JobFunc performs one run of a job. Errors are logged, never fatal.
type JobFunc func(ctx context.Context, now time.Time) error

// Predicate decides whether a job is due at a given tick. Ticks are always
// evaluated in UTC.
type Predicate func(now time.Time) bool

// EveryMinute fires on every tick
func EveryMinute(time.Time) bool { return true }

// HourlyAtMinute fires once per hour at the given minute
func HourlyAtMinute(minute int) Predicate {
	return func(now time.Time) bool { return now.Minute() == minute }
}

type job struct {
	name    string
	due     Predicate
	run     JobFunc
	running atomic.Bool
}

// Scheduler drives registered jobs off a minute-aligned ticker
type Scheduler struct {
	jobs []*job
	stop chan struct{}
	wg   sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(name string, due Predicate, run JobFunc) {
	s.jobs = append(s.jobs, &job{name: name, due: due, run: run})
}

// Start launches the tick loop. The first tick lands on the next minute
// boundary so HourlyAtMinute predicates line up with the wall clock.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
	logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts the tick loop and waits for in-flight jobs to finish
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := time.Now().UTC()
		next := now.Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case tick := <-timer.C:
			s.fire(ctx, tick.UTC())
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, now time.Time) {
	for _, j := range s.jobs {
		if !j.due(now) {
			continue
		}
		if !j.running.CompareAndSwap(false, true) {
			logger.Warn("job still running, skipping tick", "job", j.name)
			continue
		}
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			defer j.running.Store(false)

			log := logger.WithJob(j.name)
			log.Debug("job started")
			started := time.Now()
			if err := j.run(ctx, now); err != nil {
				log.Error("job failed", "error", err, "duration", time.Since(started).String())
				return
			}
			log.Debug("job finished", "duration", time.Since(started).String())
		}(j)
	}
}
