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
	"github.com/atkw312/website-blocker/internal/credential"
	"github.com/atkw312/website-blocker/internal/state"
)

type testRig struct {
	store      *state.Store
	agent      *fakeAgent
	clock      *clock.Fixed
	dispatcher *Dispatcher
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	store, err := state.NewStore(filepath.Join(t.TempDir(), "state.json"), 0)
	require.NoError(t, err)

	fake := &fakeAgent{}
	clk := &clock.Fixed{Time: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)} // a Monday

	return &testRig{
		store:      store,
		agent:      fake,
		clock:      clk,
		dispatcher: NewDispatcher(store, fake, clk, zap.NewNop()),
	}
}

func (r *testRig) activateSession(t *testing.T, mode state.Mode, locked bool) state.Session {
	t.Helper()
	sess := state.Session{
		Mode:      mode,
		StartTime: r.clock.Now().UnixMilli(),
		EndTime:   r.clock.Now().Add(30 * time.Minute).UnixMilli(),
		Locked:    locked,
	}
	require.NoError(t, r.store.SetSession(state.OriginUser, sess))
	return sess
}

func TestStartPrecision(t *testing.T) {
	rig := newTestRig(t)

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{
		Mode:            state.ModePrecision,
		DurationMinutes: 25,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warning)

	sess := rig.store.Session()
	assert.Equal(t, state.ModePrecision, sess.Mode)
	assert.Equal(t, rig.clock.Now().UnixMilli(), sess.StartTime)
	assert.Equal(t, rig.clock.Now().Add(25*time.Minute).UnixMilli(), sess.EndTime)
	assert.False(t, sess.Locked)

	// Agent was notified for bookkeeping.
	require.Len(t, rig.agent.callsOf(agent.TypeStartSession), 1)
}

func TestStartPrecisionSurvivesAgentOutage(t *testing.T) {
	rig := newTestRig(t)
	rig.agent.unavailable = true

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{Mode: state.ModePrecision})
	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	assert.Equal(t, state.ModePrecision, rig.store.Session().Mode)
}

func TestStartUsesSettingsDefaults(t *testing.T) {
	rig := newTestRig(t)
	settings := rig.store.Settings()
	settings.DefaultMode = state.ModePrecision
	settings.SessionDurationMinutes = 45
	require.NoError(t, rig.store.SetSettings(state.OriginUser, settings))

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, state.ModePrecision, result.Session.Mode)
	assert.Equal(t, rig.clock.Now().Add(45*time.Minute).UnixMilli(), result.Session.EndTime)
}

func TestStartStrictAdoptsAgentSession(t *testing.T) {
	rig := newTestRig(t)
	agentEnd := rig.clock.Now().Add(50 * time.Minute).UnixMilli()
	rig.agent.startResp = &agent.Response{
		Status: agent.StatusOK,
		Session: &agent.SessionPayload{
			Mode:      state.ModeStrict,
			StartTime: rig.clock.Now().UnixMilli(),
			EndTime:   agentEnd,
		},
	}

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{Mode: state.ModeStrict, DurationMinutes: 40})
	require.NoError(t, err)
	assert.Empty(t, result.Warning)

	// Agent response is authoritative for strict sessions.
	sess := rig.store.Session()
	assert.Equal(t, state.ModeStrict, sess.Mode)
	assert.Equal(t, agentEnd, sess.EndTime)
}

func TestStartStrictFallsBackToPrecision(t *testing.T) {
	rig := newTestRig(t)
	rig.agent.unavailable = true

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{Mode: state.ModeStrict})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warning)

	// Fallback lands in precision, not off and not strict.
	assert.Equal(t, state.ModePrecision, rig.store.Session().Mode)
}

func TestStartWhileActiveIsInvalid(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModePrecision, false)
	before := rig.store.Session()

	_, err := rig.dispatcher.StartSession(context.Background(), StartOptions{Mode: state.ModePrecision})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, rig.store.Session())
}

func TestStartComputesLocked(t *testing.T) {
	rig := newTestRig(t)
	hash, err := credential.Hash("pin")
	require.NoError(t, err)
	settings := rig.store.Settings()
	settings.RequireParentUnlock = true
	settings.ParentCredentialHash = hash
	require.NoError(t, rig.store.SetSettings(state.OriginUser, settings))

	result, err := rig.dispatcher.StartSession(context.Background(), StartOptions{Mode: state.ModePrecision})
	require.NoError(t, err)
	assert.True(t, result.Session.Locked)
}

func TestSwitchUpgrade(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModePrecision, false)

	require.NoError(t, rig.dispatcher.SwitchMode(context.Background(), state.ModeStrict))
	assert.Equal(t, state.ModeStrict, rig.store.Session().Mode)
	require.Len(t, rig.agent.callsOf(agent.TypeSwitchMode), 1)
}

func TestSwitchUpgradeRevertsOnAgentFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModePrecision, false)
	rig.agent.unavailable = true

	err := rig.dispatcher.SwitchMode(context.Background(), state.ModeStrict)
	assert.ErrorIs(t, err, ErrAgentUnavailable)

	// Never stuck at strict without agent confirmation.
	assert.Equal(t, state.ModePrecision, rig.store.Session().Mode)
}

func TestSwitchDowngrade(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, false)

	require.NoError(t, rig.dispatcher.SwitchMode(context.Background(), state.ModePrecision))
	assert.Equal(t, state.ModePrecision, rig.store.Session().Mode)
}

func TestSwitchDowngradeKeepsStrictOnAgentFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, false)
	rig.agent.unavailable = true

	err := rig.dispatcher.SwitchMode(context.Background(), state.ModePrecision)
	assert.ErrorIs(t, err, ErrAgentUnavailable)
	assert.Equal(t, state.ModeStrict, rig.store.Session().Mode)
}

func TestSwitchInvalidPairs(t *testing.T) {
	rig := newTestRig(t)

	// No active session.
	err := rig.dispatcher.SwitchMode(context.Background(), state.ModeStrict)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	rig.activateSession(t, state.ModePrecision, false)

	// Same mode.
	err = rig.dispatcher.SwitchMode(context.Background(), state.ModePrecision)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Off is not a switch target.
	err = rig.dispatcher.SwitchMode(context.Background(), state.ModeOff)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, state.ModePrecision, rig.store.Session().Mode)
	assert.Empty(t, rig.agent.callTypes())
}

func TestEndWithoutSessionIsInvalid(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.dispatcher.EndSession(context.Background(), EndOptions{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, rig.store.History())
}

func TestRoundTripWritesOneHistoryEntry(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.dispatcher.StartSession(context.Background(), StartOptions{
		Mode:            state.ModePrecision,
		DurationMinutes: 25,
	})
	require.NoError(t, err)

	rig.clock.Advance(10 * time.Minute)
	_, err = rig.dispatcher.EndSession(context.Background(), EndOptions{Natural: false})
	require.NoError(t, err)

	history := rig.store.History()
	require.Len(t, history, 1)
	entry := history[0]
	assert.Equal(t, 25, entry.DurationMinutes)
	assert.Equal(t, 10, entry.ActualMinutes)
	assert.LessOrEqual(t, entry.ActualMinutes, entry.DurationMinutes)
	assert.False(t, entry.CompletedNaturally)

	assert.Equal(t, state.ModeOff, rig.store.Session().Mode)
	assert.Equal(t, 1, rig.store.Stats().TotalSessions)
}

func TestEndLockedStrictRequiresCredential(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, true)

	_, err := rig.dispatcher.EndSession(context.Background(), EndOptions{Natural: false})
	assert.ErrorIs(t, err, ErrCredentialRequired)

	assert.Equal(t, state.ModeStrict, rig.store.Session().Mode)
	assert.Empty(t, rig.store.History())
}

func TestEndLockedStrictNaturalSkipsCredential(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, true)

	_, err := rig.dispatcher.EndSession(context.Background(), EndOptions{Natural: true})
	require.NoError(t, err)
	assert.Equal(t, state.ModeOff, rig.store.Session().Mode)
}

func TestEndStrictAgentRejectsCredential(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, true)
	rig.agent.endResp = &agent.Response{Status: agent.StatusError, Message: "Invalid credential."}

	_, err := rig.dispatcher.EndSession(context.Background(), EndOptions{Credential: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	assert.Equal(t, state.ModeStrict, rig.store.Session().Mode)
	assert.Empty(t, rig.store.History())
}

func TestEndStrictAgentDownEndsLocally(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModeStrict, false)
	rig.agent.unavailable = true

	result, err := rig.dispatcher.EndSession(context.Background(), EndOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, state.ModeOff, rig.store.Session().Mode)
	assert.Len(t, rig.store.History(), 1)
}

func TestEndStrictAgentDownVerifiesCredentialLocally(t *testing.T) {
	rig := newTestRig(t)
	hash, err := credential.Hash("pin")
	require.NoError(t, err)
	settings := rig.store.Settings()
	settings.RequireParentUnlock = true
	settings.ParentCredentialHash = hash
	require.NoError(t, rig.store.SetSettings(state.OriginUser, settings))

	rig.activateSession(t, state.ModeStrict, true)
	rig.agent.unavailable = true

	_, err = rig.dispatcher.EndSession(context.Background(), EndOptions{Credential: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, state.ModeStrict, rig.store.Session().Mode)

	result, err := rig.dispatcher.EndSession(context.Background(), EndOptions{Credential: "pin"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, state.ModeOff, rig.store.Session().Mode)
}

func TestEndPrecisionNotifiesAgentAfterLocalCleanup(t *testing.T) {
	rig := newTestRig(t)
	rig.activateSession(t, state.ModePrecision, false)

	_, err := rig.dispatcher.EndSession(context.Background(), EndOptions{})
	require.NoError(t, err)

	require.Len(t, rig.agent.callsOf(agent.TypeEndSession), 1)
	assert.Equal(t, state.ModeOff, rig.store.Session().Mode)
}
