// Package state holds the shared durable state for the focus orchestrator: the
// active session, settings, schedules, block rules, and session history. All of
// it lives in a single JSON document so the enforcement agent and every local
// surface read the same truth.
package state

import (
	"fmt"
	"time"

	"github.com/atkw312/website-blocker/internal/rules"
)

// Mode is the enforcement strength of a focus session.
type Mode string

const (
	ModeOff       Mode = "off"       // no session running
	ModePrecision Mode = "precision" // in-surface enforcement only
	ModeStrict    Mode = "strict"    // system-level blocking via the agent
)

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	return m == ModeOff || m == ModePrecision || m == ModeStrict
}

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (expected off, precision, or strict)", s)
	}
	return m, nil
}

// Session is the single active-or-inactive focus session.
// Times are milliseconds since epoch; both are zero exactly when Mode is off.
type Session struct {
	Mode        Mode   `json:"mode"`
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
	Locked      bool   `json:"locked"`
	ScheduledID string `json:"scheduledId,omitempty"`
}

// Active reports whether a session is currently running.
func (s Session) Active() bool {
	return s.Mode != ModeOff && s.Mode != ""
}

// Expired reports whether the session's end time has passed.
func (s Session) Expired(now time.Time) bool {
	return s.Active() && s.EndTime > 0 && now.UnixMilli() >= s.EndTime
}

// Settings is process-wide configuration shared with the agent.
type Settings struct {
	DefaultMode            Mode   `json:"defaultMode"`
	BlockAllChannels       bool   `json:"blockAllChannels"`
	RequireParentUnlock    bool   `json:"requireParentUnlock"`
	ParentCredentialHash   string `json:"parentCredentialHash,omitempty"`
	SessionDurationMinutes int    `json:"sessionDurationMinutes"`
}

// Schedule is a recurring day-of-week + time-of-day window during which a
// session should auto-start.
type Schedule struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Days        []time.Weekday `json:"days"`
	StartHour   int            `json:"startHour"`
	StartMinute int            `json:"startMinute"`
	EndHour     int            `json:"endHour"`
	EndMinute   int            `json:"endMinute"`
	Enabled     bool           `json:"enabled"`
}

// HistoryEntry records one completed session. Written once per session end.
type HistoryEntry struct {
	StartTime          int64  `json:"startTime"`
	EndTime            int64  `json:"endTime"`
	DurationMinutes    int    `json:"durationMinutes"`
	ActualMinutes      int    `json:"actualMinutes"`
	CompletedNaturally bool   `json:"completedNaturally"`
	ScheduledID        string `json:"scheduledId,omitempty"`
}

// Stats are aggregate counters updated whenever a session ends.
type Stats struct {
	TotalSessions     int `json:"totalSessions"`
	CompletedSessions int `json:"completedSessions"`
	TotalFocusMinutes int `json:"totalFocusMinutes"`
}

// State is the full durable document.
type State struct {
	Session   Session          `json:"session"`
	Settings  Settings         `json:"settings"`
	Schedules []Schedule       `json:"schedules"`
	Rules     rules.BlockRules `json:"rules"`
	History   []HistoryEntry   `json:"history"`
	Stats     Stats            `json:"stats"`
}

// DefaultSettings are used when no state file exists yet.
func DefaultSettings() Settings {
	return Settings{
		DefaultMode:            ModePrecision,
		SessionDurationMinutes: 30,
	}
}

func schedulesEqual(a, b []Schedule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !scheduleEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func scheduleEqual(a, b Schedule) bool {
	if a.ID != b.ID || a.Label != b.Label || a.Enabled != b.Enabled ||
		a.StartHour != b.StartHour || a.StartMinute != b.StartMinute ||
		a.EndHour != b.EndHour || a.EndMinute != b.EndMinute ||
		len(a.Days) != len(b.Days) {
		return false
	}
	for i := range a.Days {
		if a.Days[i] != b.Days[i] {
			return false
		}
	}
	return true
}

func historyEqual(a, b []HistoryEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
