package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/state"
)

// Supervisor is the recurring liveness alarm: it ends naturally expired
// sessions, keeps the persistent enforcement channel alive while a session is
// running, and performs startup recovery.
type Supervisor struct {
	store      *state.Store
	dispatcher *Dispatcher
	agent      AgentClient
	scheduler  *Scheduler
	clock      clock.Clock
	logger     *zap.Logger
	interval   time.Duration
}

// NewSupervisor creates a Supervisor ticking every interval.
func NewSupervisor(store *state.Store, dispatcher *Dispatcher, agentClient AgentClient, scheduler *Scheduler, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Supervisor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Supervisor{
		store:      store,
		dispatcher: dispatcher,
		agent:      agentClient,
		scheduler:  scheduler,
		clock:      clk,
		logger:     logger,
		interval:   interval,
	}
}

// Run ticks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one supervision pass. Only relevant while a session is active.
func (s *Supervisor) Tick(ctx context.Context) {
	sess := s.store.Session()
	if !sess.Active() {
		return
	}

	if sess.Expired(s.clock.Now()) {
		s.logger.Info("session expired, ending", zap.String("mode", string(sess.Mode)))
		if _, err := s.dispatcher.EndSession(ctx, EndOptions{Natural: true}); err != nil {
			s.logger.Warn("natural end failed", zap.Error(err))
		}
		return
	}

	if !s.agent.Connected() {
		s.agent.Connect()
		return
	}
	if _, err := s.agent.Push(agent.Request{Type: agent.TypePing}); err != nil {
		s.logger.Debug("liveness ping failed", zap.Error(err))
	}
}

// Startup runs once when the process comes up: always (re)establish the
// persistent connection; if a session survived the last shutdown its
// supervision resumes immediately, otherwise one schedule check catches any
// window missed while the process was down.
func (s *Supervisor) Startup(ctx context.Context) {
	s.agent.Connect()

	sess := s.store.Session()
	if sess.Active() {
		s.logger.Info("resuming session supervision",
			zap.String("mode", string(sess.Mode)),
			zap.Int64("endTime", sess.EndTime))
		s.Tick(ctx)
		return
	}

	s.scheduler.Check(ctx)
}
