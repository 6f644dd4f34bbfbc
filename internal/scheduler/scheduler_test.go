package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPredicates(t *testing.T) {
	at5 := HourlyAtMinute(5)
	tests := []struct {
		now  time.Time
		want bool
	}{
		{time.Date(2026, 8, 26, 14, 5, 0, 0, time.UTC), true},
		{time.Date(2026, 8, 26, 14, 6, 0, 0, time.UTC), false},
		{time.Date(2026, 8, 26, 0, 5, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		if got := at5(tt.now); got != tt.want {
			t.Errorf("HourlyAtMinute(5) at %s = %v, expected %v", tt.now, got, tt.want)
		}
		if !EveryMinute(tt.now) {
			t.Errorf("EveryMinute should always fire")
		}
	}
}

func TestFireRunsDueJobs(t *testing.T) {
	s := New()
	var everyRuns, hourlyRuns atomic.Int32
	s.Add("every", EveryMinute, func(ctx context.Context, now time.Time) error {
		everyRuns.Add(1)
		return nil
	})
	s.Add("hourly", HourlyAtMinute(5), func(ctx context.Context, now time.Time) error {
		hourlyRuns.Add(1)
		return nil
	})

	s.fire(context.Background(), time.Date(2026, 8, 26, 14, 4, 0, 0, time.UTC))
	// Let the first tick's runs finish so the single-instance guard
	// does not skip the next one
	s.wg.Wait()
	s.fire(context.Background(), time.Date(2026, 8, 26, 14, 5, 0, 0, time.UTC))
	s.wg.Wait()

	if everyRuns.Load() != 2 {
		t.Errorf("expected every-minute job to run twice, got %d", everyRuns.Load())
	}
	if hourlyRuns.Load() != 1 {
		t.Errorf("expected hourly job to run once, got %d", hourlyRuns.Load())
	}
}

func TestFireSkipsRunningJob(t *testing.T) {
	s := New()
	release := make(chan struct{})
	var runs atomic.Int32
	s.Add("slow", EveryMinute, func(ctx context.Context, now time.Time) error {
		runs.Add(1)
		<-release
		return nil
	})

	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	s.fire(context.Background(), now)
	// Second tick arrives while the first run is blocked
	s.fire(context.Background(), now.Add(time.Minute))
	close(release)
	s.wg.Wait()

	if runs.Load() != 1 {
		t.Errorf("overlapping tick must be skipped, got %d runs", runs.Load())
	}
}

func TestFireSurvivesFailure(t *testing.T) {
	s := New()
	var after atomic.Int32
	s.Add("failing", EveryMinute, func(ctx context.Context, now time.Time) error {
		return errors.New("boom")
	})
	s.Add("healthy", EveryMinute, func(ctx context.Context, now time.Time) error {
		after.Add(1)
		return nil
	})

	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	s.fire(context.Background(), now)
	// Wait out the first tick; otherwise the second one would be
	// skipped as still running
	s.wg.Wait()
	s.fire(context.Background(), now.Add(time.Minute))
	s.wg.Wait()

	if after.Load() != 2 {
		t.Errorf("a failing job must not stop others, got %d healthy runs", after.Load())
	}
}

func TestStartStop(t *testing.T) {
	s := New()
	s.Add("noop", EveryMinute, func(ctx context.Context, now time.Time) error { return nil })

	s.Start(context.Background())
	s.Stop()
}
