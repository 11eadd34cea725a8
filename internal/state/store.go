package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"

	"github.com/atkw312/website-blocker/internal/rules"
)

// Origin identifies which component initiated a store write. The sync
// consumer uses it to suppress pushing agent-originated changes back to the
// agent.
type Origin string

const (
	OriginUser      Origin = "user"      // direct user action (CLI, UI surface)
	OriginScheduler Origin = "scheduler" // schedule engine autostart
	OriginAgent     Origin = "agent"     // reconciled from agent state
	OriginExternal  Origin = "external"  // state file edited by another process
)

// Key names one top-level section of the state document.
type Key string

const (
	KeySession   Key = "session"
	KeySettings  Key = "settings"
	KeySchedules Key = "schedules"
	KeyRules     Key = "rules"
	KeyHistory   Key = "history"
)

// Change describes one store mutation, delivered to subscribers.
type Change struct {
	Key    Key
	Origin Origin
}

// DefaultHistoryCap bounds the history ring when no cap is configured.
const DefaultHistoryCap = 100

// Store manages the durable state document at a single JSON file path.
// Writes are persisted immediately; setters are no-ops when the value is
// unchanged, so subscribers only hear about real changes.
type Store struct {
	mu         sync.Mutex
	path       string
	state      State
	subs       map[int]func(Change)
	nextSub    int
	historyCap int
}

// DefaultPath returns ~/.focusblock/state.json.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".focusblock", "state.json"), nil
}

// NewStore opens the state document at path, creating it with defaults if it
// does not exist yet.
func NewStore(path string, historyCap int) (*Store, error) {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		path:       path,
		subs:       make(map[int]func(Change)),
		historyCap: historyCap,
	}

	st, err := readState(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		st = State{Session: Session{Mode: ModeOff}, Settings: DefaultSettings()}
		if err := writeState(path, st); err != nil {
			return nil, err
		}
	}
	s.state = st

	return s, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Session returns the current session record.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session
}

// SetSession replaces the session record. No-op if unchanged.
func (s *Store) SetSession(origin Origin, sess Session) error {
	s.mu.Lock()
	if s.state.Session == sess {
		s.mu.Unlock()
		return nil
	}
	s.state.Session = sess
	return s.persistAndNotify(KeySession, origin)
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// SetSettings replaces the settings. No-op if unchanged.
func (s *Store) SetSettings(origin Origin, settings Settings) error {
	s.mu.Lock()
	if s.state.Settings == settings {
		s.mu.Unlock()
		return nil
	}
	s.state.Settings = settings
	return s.persistAndNotify(KeySettings, origin)
}

// Schedules returns a copy of the schedule list.
func (s *Store) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, len(s.state.Schedules))
	copy(out, s.state.Schedules)
	return out
}

// SetSchedules replaces the schedule list. No-op if unchanged.
func (s *Store) SetSchedules(origin Origin, schedules []Schedule) error {
	s.mu.Lock()
	if schedulesEqual(s.state.Schedules, schedules) {
		s.mu.Unlock()
		return nil
	}
	s.state.Schedules = schedules
	return s.persistAndNotify(KeySchedules, origin)
}

// Rules returns the current block rules.
func (s *Store) Rules() rules.BlockRules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Rules
}

// SetRules replaces the block rules. No-op if unchanged.
func (s *Store) SetRules(origin Origin, r rules.BlockRules) error {
	s.mu.Lock()
	if rules.Equal(s.state.Rules, r) {
		s.mu.Unlock()
		return nil
	}
	s.state.Rules = r
	return s.persistAndNotify(KeyRules, origin)
}

// History returns a copy of the history ring, newest last.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.state.History))
	copy(out, s.state.History)
	return out
}

// Stats returns the aggregate counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Stats
}

// AppendHistory appends one entry to the bounded history ring and updates the
// aggregate stats in the same write.
func (s *Store) AppendHistory(origin Origin, entry HistoryEntry) error {
	s.mu.Lock()
	s.state.History = append(s.state.History, entry)
	if excess := len(s.state.History) - s.historyCap; excess > 0 {
		s.state.History = append([]HistoryEntry(nil), s.state.History[excess:]...)
	}
	s.state.Stats.TotalSessions++
	s.state.Stats.TotalFocusMinutes += entry.ActualMinutes
	if entry.CompletedNaturally {
		s.state.Stats.CompletedSessions++
	}
	return s.persistAndNotify(KeyHistory, origin)
}

// Reload re-reads the state file and merges any sections that differ from the
// in-memory copy, notifying subscribers with OriginExternal. Used by the file
// watcher when another process edits the document.
func (s *Store) Reload() ([]Change, error) {
	st, err := readState(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var changes []Change
	if s.state.Session != st.Session {
		changes = append(changes, Change{Key: KeySession, Origin: OriginExternal})
	}
	if s.state.Settings != st.Settings {
		changes = append(changes, Change{Key: KeySettings, Origin: OriginExternal})
	}
	if !schedulesEqual(s.state.Schedules, st.Schedules) {
		changes = append(changes, Change{Key: KeySchedules, Origin: OriginExternal})
	}
	if !rules.Equal(s.state.Rules, st.Rules) {
		changes = append(changes, Change{Key: KeyRules, Origin: OriginExternal})
	}
	if !historyEqual(s.state.History, st.History) {
		changes = append(changes, Change{Key: KeyHistory, Origin: OriginExternal})
	}
	s.state = st
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
	return changes, nil
}

// persistAndNotify writes the state file and fans out one change notification.
// Called with s.mu held; releases it before invoking subscribers so callbacks
// can read the store.
func (s *Store) persistAndNotify(key Key, origin Origin) error {
	err := writeState(s.path, s.state)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range subs {
		fn(Change{Key: key, Origin: origin})
	}
	return nil
}

func (s *Store) snapshotSubs() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func readState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if st.Session.Mode == "" {
		st.Session.Mode = ModeOff
	}
	return st, nil
}

func writeState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
