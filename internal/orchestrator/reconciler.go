package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/rules"
	"github.com/atkw312/website-blocker/internal/state"
)

// Reconciler pulls the agent's authoritative state into the local store at a
// fixed interval. Writes are tagged OriginAgent so the sync consumer never
// echoes them back to the agent, and only fields that actually changed are
// written, keeping change notifications quiet when nothing moved.
type Reconciler struct {
	store    *state.Store
	agent    AgentClient
	logger   *zap.Logger
	interval time.Duration
}

// NewReconciler creates a Reconciler polling every interval.
func NewReconciler(store *state.Store, agentClient AgentClient, interval time.Duration, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Reconciler{store: store, agent: agentClient, logger: logger, interval: interval}
}

// Run polls until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Step(ctx); err != nil {
				r.logger.Debug("reconcile skipped", zap.Error(err))
			}
		}
	}
}

// Step performs one reconciliation pass and returns the number of store
// sections written. A second pass against unchanged agent state writes zero.
func (r *Reconciler) Step(ctx context.Context) (int, error) {
	resp, err := r.agent.Call(ctx, agent.Request{Type: agent.TypeGetState})
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, fmt.Errorf("agent state query rejected: %s", resp.Message)
	}

	writes := 0

	if resp.Session != nil {
		sess := resp.Session.ToSession()
		if sess.Mode == "" {
			sess.Mode = state.ModeOff
		}
		if sess != r.store.Session() {
			if err := r.store.SetSession(state.OriginAgent, sess); err != nil {
				return writes, err
			}
			writes++
		}
	}

	if resp.YoutubeRules != nil || resp.BlockedDomains != nil {
		current := r.store.Rules()
		next := current
		if resp.YoutubeRules != nil {
			next.BlockedChannels = resp.YoutubeRules.BlockedChannels
			next.AllowedChannels = resp.YoutubeRules.AllowedChannels
		}
		if resp.BlockedDomains != nil {
			next.BlockedDomains = resp.BlockedDomains
		}
		next = rules.Normalize(next)
		if !rules.Equal(current, next) {
			if err := r.store.SetRules(state.OriginAgent, next); err != nil {
				return writes, err
			}
			writes++
		}
	}

	if resp.Settings != nil {
		current := r.store.Settings()
		// Only the agent-owned subset is merged; parent-unlock fields stay
		// local.
		next := current
		if resp.Settings.DefaultMode.Valid() && resp.Settings.DefaultMode != state.ModeOff {
			next.DefaultMode = resp.Settings.DefaultMode
		}
		next.BlockAllChannels = resp.Settings.BlockAllChannels
		if resp.Settings.SessionDurationMinutes > 0 {
			next.SessionDurationMinutes = resp.Settings.SessionDurationMinutes
		}
		if next != current {
			if err := r.store.SetSettings(state.OriginAgent, next); err != nil {
				return writes, err
			}
			writes++
		}
	}

	if writes > 0 {
		r.logger.Debug("reconciled agent state", zap.Int("sections", writes))
	}
	return writes, nil
}
