package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/rules"
	"github.com/atkw312/website-blocker/internal/state"
)

func newOrchestratorRig(t *testing.T) (*state.Store, *fakeAgent, *Orchestrator) {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "state.json"), 0)
	require.NoError(t, err)

	fake := &fakeAgent{}
	clk := &clock.Fixed{Time: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}

	// Long intervals keep the periodic loops quiet during the test.
	o := New(store, fake, nil, clk, Options{
		PollInterval:       time.Hour,
		ScheduleInterval:   time.Hour,
		SupervisorInterval: time.Hour,
	}, zap.NewNop())
	return store, fake, o
}

func TestAntiEcho(t *testing.T) {
	store, fake, o := newOrchestratorRig(t)
	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	// A rules change reconciled from the agent must not be pushed back.
	require.NoError(t, store.SetRules(state.OriginAgent, rules.BlockRules{
		BlockedDomains: []string{"example.com"},
	}))
	assert.Empty(t, fake.callsOf(agent.TypeSyncRules))

	// The same field changed by a direct user action is pushed.
	require.NoError(t, store.SetRules(state.OriginUser, rules.BlockRules{
		BlockedDomains: []string{"example.com", "other.org"},
	}))
	synced := fake.callsOf(agent.TypeSyncRules)
	require.Len(t, synced, 1)
	assert.Equal(t, []string{"example.com", "other.org"}, synced[0].BlockedDomains)
}

func TestSettingsPushOmitsLocalOnlyFields(t *testing.T) {
	store, fake, o := newOrchestratorRig(t)
	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	settings := store.Settings()
	settings.SessionDurationMinutes = 45
	settings.RequireParentUnlock = true
	settings.ParentCredentialHash = "$argon2id$..."
	require.NoError(t, store.SetSettings(state.OriginUser, settings))

	synced := fake.callsOf(agent.TypeSyncSettings)
	require.Len(t, synced, 1)
	require.NotNil(t, synced[0].Settings)
	assert.Equal(t, 45, synced[0].Settings.SessionDurationMinutes)

	// Agent-originated settings writes stay quiet.
	settings.SessionDurationMinutes = 50
	require.NoError(t, store.SetSettings(state.OriginAgent, settings))
	assert.Len(t, fake.callsOf(agent.TypeSyncSettings), 1)
}

func TestExternalEditsArePushed(t *testing.T) {
	store, fake, o := newOrchestratorRig(t)
	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	// Edits that arrive via the state file (another process) count as local
	// intent and are pushed to the agent.
	require.NoError(t, store.SetRules(state.OriginExternal, rules.BlockRules{
		BlockedDomains: []string{"example.com"},
	}))
	assert.Len(t, fake.callsOf(agent.TypeSyncRules), 1)
}

func TestStartupConnectsAndStopDisconnects(t *testing.T) {
	_, fake, o := newOrchestratorRig(t)

	require.NoError(t, o.Start(context.Background()))
	assert.True(t, fake.Connected())

	o.Stop()
	assert.False(t, fake.Connected())
}

func TestSessionChangesAreNotSynced(t *testing.T) {
	store, fake, o := newOrchestratorRig(t)
	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	// Session changes travel via explicit START/END calls, never SYNC_*.
	require.NoError(t, store.SetSession(state.OriginUser, state.Session{
		Mode:      state.ModePrecision,
		StartTime: 1,
		EndTime:   2,
	}))
	assert.Empty(t, fake.callsOf(agent.TypeSyncRules))
	assert.Empty(t, fake.callsOf(agent.TypeSyncSettings))
}
