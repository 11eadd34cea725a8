package agent

import "github.com/atkw312/website-blocker/internal/state"

// MessageType identifies a request to the enforcement agent.
type MessageType string

const (
	TypePing          MessageType = "PING"
	TypeGetState      MessageType = "GET_STATE"
	TypeStartSession  MessageType = "START_SESSION"
	TypeSwitchMode    MessageType = "SWITCH_MODE"
	TypeEndSession    MessageType = "END_SESSION"
	TypeSyncRules     MessageType = "SYNC_RULES"
	TypeSyncSettings  MessageType = "SYNC_SETTINGS"
	TypeBlockDomain   MessageType = "BLOCK_DOMAIN"
	TypeUnblockDomain MessageType = "UNBLOCK_DOMAIN"
)

// Request is the wire form of a message to the agent. Fields are sparse; only
// those relevant to the Type are populated.
type Request struct {
	Type             MessageType       `json:"type"`
	Mode             state.Mode        `json:"mode,omitempty"`
	DurationMinutes  int               `json:"durationMinutes,omitempty"`
	ScheduledID      string            `json:"scheduledId,omitempty"`
	Locked           bool              `json:"locked,omitempty"`
	Natural          bool              `json:"natural,omitempty"`
	ParentCredential string            `json:"parentCredential,omitempty"`
	Domain           string            `json:"domain,omitempty"`
	YoutubeRules     *YoutubeRules     `json:"youtubeRules,omitempty"`
	BlockedDomains   []string          `json:"blockedDomains,omitempty"`
	Settings         *SettingsPayload  `json:"settings,omitempty"`
}

// Status is the agent's result indicator.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// Response is the wire form of the agent's reply. GET_STATE populates the
// state fields; everything else carries only status and an optional message.
type Response struct {
	Status         Status           `json:"status"`
	Message        string           `json:"message,omitempty"`
	Session        *SessionPayload  `json:"session,omitempty"`
	YoutubeRules   *YoutubeRules    `json:"youtubeRules,omitempty"`
	BlockedDomains []string         `json:"blockedDomains,omitempty"`
	Settings       *SettingsPayload `json:"settings,omitempty"`
}

// OK reports whether the agent accepted the request.
func (r Response) OK() bool {
	return r.Status == StatusOK
}

// SessionPayload is the agent's view of the session record.
type SessionPayload struct {
	Mode        state.Mode `json:"mode"`
	StartTime   int64      `json:"startTime"`
	EndTime     int64      `json:"endTime"`
	Locked      bool       `json:"locked"`
	ScheduledID string     `json:"scheduledId,omitempty"`
}

// ToSession converts the payload into a local session record.
func (p SessionPayload) ToSession() state.Session {
	return state.Session{
		Mode:        p.Mode,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Locked:      p.Locked,
		ScheduledID: p.ScheduledID,
	}
}

// YoutubeRules is the channel allow/block portion of the rule set.
type YoutubeRules struct {
	BlockedChannels []string `json:"blockedChannels"`
	AllowedChannels []string `json:"allowedChannels"`
}

// SettingsPayload is the agent-owned subset of settings. Local-only fields
// (parent unlock requirement, credential hash) never cross the wire here.
type SettingsPayload struct {
	DefaultMode            state.Mode `json:"defaultMode"`
	BlockAllChannels       bool       `json:"blockAllChannels"`
	SessionDurationMinutes int        `json:"sessionDurationMinutes"`
}
