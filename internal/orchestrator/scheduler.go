package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/state"
)

// Scheduler auto-starts sessions when a configured window is active. It scans
// the schedule list in order and the first matching window wins; overlapping
// schedules are not merged or prioritized.
type Scheduler struct {
	store      *state.Store
	dispatcher *Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	interval   time.Duration
}

// NewScheduler creates a Scheduler ticking every interval.
func NewScheduler(store *state.Store, dispatcher *Dispatcher, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{store: store, dispatcher: dispatcher, clock: clk, logger: logger, interval: interval}
}

// Run evaluates schedules until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check runs one scheduling pass. It does nothing while a session is active.
// Invalid schedules are skipped, not fatal to the scan.
func (s *Scheduler) Check(ctx context.Context) {
	if s.store.Session().Active() {
		return
	}

	now := s.clock.Now()
	for _, sched := range s.store.Schedules() {
		if !sched.Enabled {
			continue
		}
		if err := sched.Validate(); err != nil {
			s.logger.Warn("skipping schedule", zap.String("id", sched.ID), zap.Error(err))
			continue
		}
		if !sched.ContainsTime(now) {
			continue
		}

		minutes := sched.MinutesUntilEnd(now)
		if minutes <= 0 {
			continue
		}

		mode := s.store.Settings().DefaultMode
		s.logger.Info("schedule window active, starting session",
			zap.String("schedule", sched.ID),
			zap.String("label", sched.Label),
			zap.String("mode", string(mode)),
			zap.Int("minutes", minutes))

		result, err := s.dispatcher.StartSession(ctx, StartOptions{
			Mode:            mode,
			DurationMinutes: minutes,
			ScheduledID:     sched.ID,
			Origin:          state.OriginScheduler,
		})
		if err != nil {
			s.logger.Warn("scheduled start failed", zap.String("schedule", sched.ID), zap.Error(err))
		} else if result.Warning != "" {
			s.logger.Warn("scheduled start degraded", zap.String("warning", result.Warning))
		}
		// First match wins; remaining schedules are not evaluated this cycle.
		return
	}
}
