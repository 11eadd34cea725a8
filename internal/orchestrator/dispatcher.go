package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/credential"
	"github.com/atkw312/website-blocker/internal/state"
)

// AgentClient is the slice of the enforcement channel the orchestrator needs.
// *agent.Channel satisfies it; tests substitute a fake.
type AgentClient interface {
	Call(ctx context.Context, req agent.Request) (agent.Response, error)
	Push(req agent.Request) (agent.Response, error)
	Connect()
	Disconnect()
	Connected() bool
}

// Dispatcher executes the session state machine. Each of the six legal mode
// transitions has its own ordering of local-write vs. agent-call: the side
// performing the stronger enforcement commits first on the way up and
// releases first on the way down, so the system never claims weaker
// enforcement than what is actually in force.
type Dispatcher struct {
	store  *state.Store
	agent  AgentClient
	clock  clock.Clock
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *state.Store, agentClient AgentClient, clk clock.Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, agent: agentClient, clock: clk, logger: logger}
}

// StartOptions configures an Off -> Precision/Strict transition.
type StartOptions struct {
	Mode            state.Mode   // empty: Settings.DefaultMode
	DurationMinutes int          // zero: Settings.SessionDurationMinutes
	ScheduledID     string       // set when triggered by the schedule engine
	Origin          state.Origin // empty: OriginUser
}

// Result reports the outcome of a transition. Warning is set when the
// operation succeeded in a degraded form (strict start falling back to
// precision, locked end completed without the agent).
type Result struct {
	Session state.Session
	Warning string
}

// StartSession performs Off -> Precision or Off -> Strict.
//
// Precision starts write the session locally first (enforcement is local and
// best-effort) and then notify the agent for cross-surface bookkeeping; any
// agent-authoritative values in the response overwrite the local fields.
// Strict starts call the agent first, since it performs the system-level
// blocking; if the agent is unreachable the start degrades to precision
// rather than failing outright.
func (d *Dispatcher) StartSession(ctx context.Context, opts StartOptions) (Result, error) {
	current := d.store.Session()
	if current.Active() {
		return Result{}, fmt.Errorf("%w: %s -> start (session already active)", ErrInvalidTransition, current.Mode)
	}

	settings := d.store.Settings()
	mode := opts.Mode
	if mode == "" || mode == state.ModeOff {
		mode = settings.DefaultMode
	}
	if !mode.Valid() || mode == state.ModeOff {
		mode = state.ModePrecision
	}

	minutes := opts.DurationMinutes
	if minutes <= 0 {
		minutes = settings.SessionDurationMinutes
	}
	if minutes <= 0 {
		minutes = 30
	}

	origin := opts.Origin
	if origin == "" {
		origin = state.OriginUser
	}

	// Locked is computed once at start and frozen for the session's lifetime.
	locked := settings.RequireParentUnlock && settings.ParentCredentialHash != ""

	now := d.clock.Now()
	sess := state.Session{
		Mode:        mode,
		StartTime:   now.UnixMilli(),
		EndTime:     now.Add(time.Duration(minutes) * time.Minute).UnixMilli(),
		Locked:      locked,
		ScheduledID: opts.ScheduledID,
	}

	var warning string
	if mode == state.ModeStrict {
		resp, err := d.agent.Call(ctx, agent.Request{
			Type:            agent.TypeStartSession,
			Mode:            state.ModeStrict,
			DurationMinutes: minutes,
			ScheduledID:     opts.ScheduledID,
			Locked:          locked,
		})
		if err == nil && resp.OK() {
			if resp.Session != nil {
				sess = resp.Session.ToSession()
			}
			if err := d.store.SetSession(origin, sess); err != nil {
				return Result{}, err
			}
			d.logger.Info("strict session started",
				zap.Int("minutes", minutes), zap.Bool("locked", locked))
			return Result{Session: sess}, nil
		}

		// Degrade to precision so the user still gets a session.
		d.logger.Warn("agent unreachable for strict start, falling back to precision", zap.Error(err))
		sess.Mode = state.ModePrecision
		warning = "enforcement agent unreachable; started a precision session instead"
	}

	if err := d.store.SetSession(origin, sess); err != nil {
		return Result{}, err
	}
	d.logger.Info("session started",
		zap.String("mode", string(sess.Mode)), zap.Int("minutes", minutes))

	if warning == "" {
		// Best-effort bookkeeping notification; the agent may hand back
		// authoritative session values shared with other surfaces.
		resp, err := d.agent.Call(ctx, agent.Request{
			Type:            agent.TypeStartSession,
			Mode:            sess.Mode,
			DurationMinutes: minutes,
			ScheduledID:     opts.ScheduledID,
			Locked:          locked,
		})
		if err != nil {
			d.logger.Debug("start notification failed", zap.Error(err))
		} else if resp.OK() && resp.Session != nil {
			agentSess := resp.Session.ToSession()
			if agentSess != sess && agentSess.Active() {
				if err := d.store.SetSession(state.OriginAgent, agentSess); err != nil {
					return Result{}, err
				}
				sess = agentSess
			}
		}
	}

	return Result{Session: sess, Warning: warning}, nil
}

// SwitchMode performs Precision <-> Strict on a running session.
//
// Upgrading writes the local session first so in-surface enforcement stops
// immediately, then engages the agent; on failure the local write is reverted
// so the state never claims strict without agent confirmation. Downgrading
// asks the agent to release system-level blocking first and only then writes
// the weaker mode locally.
func (d *Dispatcher) SwitchMode(ctx context.Context, to state.Mode) error {
	current := d.store.Session()
	if !current.Active() {
		return fmt.Errorf("%w: off -> %s (no active session)", ErrInvalidTransition, to)
	}
	if to != state.ModePrecision && to != state.ModeStrict {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Mode, to)
	}
	if current.Mode == to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Mode, to)
	}

	if to == state.ModeStrict {
		upgraded := current
		upgraded.Mode = state.ModeStrict
		if err := d.store.SetSession(state.OriginUser, upgraded); err != nil {
			return err
		}

		resp, err := d.agent.Call(ctx, agent.Request{Type: agent.TypeSwitchMode, Mode: state.ModeStrict})
		if err != nil || !resp.OK() {
			if revertErr := d.store.SetSession(state.OriginUser, current); revertErr != nil {
				return revertErr
			}
			d.logger.Warn("strict upgrade failed, reverted to precision", zap.Error(err))
			return fmt.Errorf("%w: strict upgrade not confirmed", ErrAgentUnavailable)
		}
		d.logger.Info("session upgraded to strict")
		return nil
	}

	resp, err := d.agent.Call(ctx, agent.Request{Type: agent.TypeSwitchMode, Mode: state.ModePrecision})
	if err != nil || !resp.OK() {
		d.logger.Warn("strict downgrade failed, keeping strict", zap.Error(err))
		return fmt.Errorf("%w: system-level blocking still engaged", ErrAgentUnavailable)
	}

	downgraded := current
	downgraded.Mode = state.ModePrecision
	if err := d.store.SetSession(state.OriginUser, downgraded); err != nil {
		return err
	}
	d.logger.Info("session downgraded to precision")
	return nil
}

// EndOptions configures a Precision/Strict -> Off transition.
type EndOptions struct {
	Natural    bool   // true when the session's end time passed
	Credential string // parent credential for locked strict sessions
	Origin     state.Origin
}

// EndSession performs Precision -> Off or Strict -> Off, appending exactly one
// history entry and updating aggregate stats.
//
// Precision needs no agent-side cleanup: local bookkeeping first, then a
// best-effort notification. Strict asks the agent first (it verifies the
// credential and releases system-level blocking); if the agent is unreachable
// the session is still ended locally — after verifying the credential against
// the locally synced hash when the session is locked — so a session can never
// become permanently un-endable.
func (d *Dispatcher) EndSession(ctx context.Context, opts EndOptions) (Result, error) {
	current := d.store.Session()
	if !current.Active() {
		return Result{}, fmt.Errorf("%w: off -> off (no active session)", ErrInvalidTransition)
	}

	origin := opts.Origin
	if origin == "" {
		origin = state.OriginUser
	}

	if current.Mode == state.ModePrecision {
		if err := d.finishLocally(current, opts.Natural, origin); err != nil {
			return Result{}, err
		}
		if _, err := d.agent.Call(ctx, agent.Request{Type: agent.TypeEndSession, Natural: opts.Natural}); err != nil {
			d.logger.Debug("end notification failed", zap.Error(err))
		}
		return Result{}, nil
	}

	// Strict. A locked session requires a credential unless it expired
	// naturally.
	if current.Locked && !opts.Natural && opts.Credential == "" {
		return Result{}, ErrCredentialRequired
	}

	resp, err := d.agent.Call(ctx, agent.Request{
		Type:             agent.TypeEndSession,
		Natural:          opts.Natural,
		ParentCredential: opts.Credential,
	})
	if err != nil {
		if current.Locked && !opts.Natural {
			hash := d.store.Settings().ParentCredentialHash
			if hash != "" {
				ok, verr := credential.Verify(opts.Credential, hash)
				if verr != nil || !ok {
					return Result{}, ErrInvalidCredential
				}
			}
		}
		d.logger.Warn("agent unreachable for strict end, ending locally", zap.Error(err))
		if err := d.finishLocally(current, opts.Natural, origin); err != nil {
			return Result{}, err
		}
		return Result{Warning: "enforcement agent unreachable; session ended locally"}, nil
	}
	if !resp.OK() {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidCredential, resp.Message)
	}

	if err := d.finishLocally(current, opts.Natural, origin); err != nil {
		return Result{}, err
	}
	d.logger.Info("strict session ended", zap.Bool("natural", opts.Natural))
	return Result{}, nil
}

// finishLocally appends the history entry, updates stats, and clears the
// session record.
func (d *Dispatcher) finishLocally(current state.Session, natural bool, origin state.Origin) error {
	now := d.clock.Now().UnixMilli()

	actual := int((now - current.StartTime) / 60000)
	if actual < 0 {
		actual = 0
	}
	planned := int((current.EndTime - current.StartTime) / 60000)
	if actual > planned {
		actual = planned
	}

	entry := state.HistoryEntry{
		StartTime:          current.StartTime,
		EndTime:            now,
		DurationMinutes:    planned,
		ActualMinutes:      actual,
		CompletedNaturally: natural,
		ScheduledID:        current.ScheduledID,
	}
	if err := d.store.AppendHistory(origin, entry); err != nil {
		return err
	}
	return d.store.SetSession(origin, state.Session{Mode: state.ModeOff})
}
