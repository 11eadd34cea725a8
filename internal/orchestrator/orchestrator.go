// Package orchestrator implements the mode-based focus session core: the
// transition state machine, agent-state reconciliation, schedule-driven
// autostart, and liveness supervision, all owned by a single Orchestrator
// with an explicit start/stop lifecycle.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/state"
)

// Options tunes the periodic loops. Zero values pick the defaults baked into
// each component.
type Options struct {
	PollInterval       time.Duration // reconciler GET_STATE cadence
	ScheduleInterval   time.Duration // schedule engine cadence
	SupervisorInterval time.Duration // liveness alarm cadence
}

// Orchestrator owns the store subscriptions, the enforcement channel, and the
// three periodic loops. It replaces what would otherwise be ambient globals
// with one instance and an explicit lifecycle.
type Orchestrator struct {
	store      *state.Store
	agent      AgentClient
	watcher    *state.Watcher
	dispatcher *Dispatcher
	reconciler *Reconciler
	scheduler  *Scheduler
	supervisor *Supervisor
	logger     *zap.Logger

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// New wires the orchestrator's components together. watcher may be nil when
// cross-process state watching is not wanted (tests, one-shot commands).
func New(store *state.Store, agentClient AgentClient, watcher *state.Watcher, clk clock.Clock, opts Options, logger *zap.Logger) *Orchestrator {
	dispatcher := NewDispatcher(store, agentClient, clk, logger)
	scheduler := NewScheduler(store, dispatcher, clk, opts.ScheduleInterval, logger)

	return &Orchestrator{
		store:      store,
		agent:      agentClient,
		watcher:    watcher,
		dispatcher: dispatcher,
		reconciler: NewReconciler(store, agentClient, opts.PollInterval, logger),
		scheduler:  scheduler,
		supervisor: NewSupervisor(store, dispatcher, agentClient, scheduler, clk, opts.SupervisorInterval, logger),
		logger:     logger,
	}
}

// Dispatcher exposes the transition state machine for direct invocation.
func (o *Orchestrator) Dispatcher() *Dispatcher {
	return o.dispatcher
}

// Reconciler exposes the reconciliation step for on-demand pulls.
func (o *Orchestrator) Reconciler() *Reconciler {
	return o.reconciler
}

// Start performs startup recovery and launches the periodic loops. It returns
// once everything is running.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)

	o.unsubscribe = o.store.Subscribe(o.onStoreChange)
	if o.watcher != nil {
		if err := o.watcher.Start(ctx); err != nil {
			return err
		}
	}

	o.supervisor.Startup(ctx)

	o.wg.Add(3)
	go func() { defer o.wg.Done(); o.reconciler.Run(ctx) }()
	go func() { defer o.wg.Done(); o.scheduler.Run(ctx) }()
	go func() { defer o.wg.Done(); o.supervisor.Run(ctx) }()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop cancels the loops, stops watching, and tears down the persistent
// connection. Safe to call once after a successful Start.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	if o.watcher != nil {
		o.watcher.Stop()
	}
	o.wg.Wait()
	o.agent.Disconnect()
	o.logger.Info("orchestrator stopped")
}

// onStoreChange pushes local edits of rules and settings to the agent.
// Changes tagged OriginAgent came from reconciliation and are never pushed
// back; that origin check is the whole anti-echo rule.
func (o *Orchestrator) onStoreChange(c state.Change) {
	if c.Origin == state.OriginAgent {
		return
	}

	switch c.Key {
	case state.KeyRules:
		r := o.store.Rules()
		_, err := o.agent.Call(context.Background(), agent.Request{
			Type: agent.TypeSyncRules,
			YoutubeRules: &agent.YoutubeRules{
				BlockedChannels: r.BlockedChannels,
				AllowedChannels: r.AllowedChannels,
			},
			BlockedDomains: r.BlockedDomains,
		})
		if err != nil {
			o.logger.Debug("rules sync failed", zap.Error(err))
		}
	case state.KeySettings:
		s := o.store.Settings()
		_, err := o.agent.Call(context.Background(), agent.Request{
			Type: agent.TypeSyncSettings,
			Settings: &agent.SettingsPayload{
				DefaultMode:            s.DefaultMode,
				BlockAllChannels:       s.BlockAllChannels,
				SessionDurationMinutes: s.SessionDurationMinutes,
			},
		})
		if err != nil {
			o.logger.Debug("settings sync failed", zap.Error(err))
		}
	}
}
