package learner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/srmops/logibot/internal/logging"
)

// Scheduler fires learning cycles on a cron schedule instead of the
// fixed check interval. Used when learner.schedule is configured.
type Scheduler struct {
	learner *Learner
	log     *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a scheduler for the learner.
func NewScheduler(l *Learner) *Scheduler {
	return &Scheduler{
		learner: l,
		log:     logging.WithComponent("scheduler"),
	}
}

// Start begins firing cycles on the configured schedule. Overlapping
// runs are prevented; a cycle still in flight makes the next tick a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	spec := s.learner.cfg.Learner.Schedule
	if spec == "" {
		return fmt.Errorf("no schedule configured")
	}

	loc, err := time.LoadLocation(s.learner.cfg.Learner.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.learner.cfg.Learner.Timezone, err)
	}

	var inFlight sync.Mutex
	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(spec, func() {
		if !inFlight.TryLock() {
			s.log.Warn("skipping scheduled cycle, previous cycle still running")
			return
		}
		defer inFlight.Unlock()

		if _, err := s.learner.RunOnce(ctx); err != nil {
			s.log.Error("scheduled cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.log.Info("scheduler started", "schedule", spec, "timezone", loc.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("scheduler stopped")
}

// Running reports whether the scheduler is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
