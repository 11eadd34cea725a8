package orchestrator

import (
	"errors"

	"github.com/atkw312/website-blocker/internal/agent"
)

var (
	// ErrInvalidTransition rejects a (from, to) mode pair outside the six
	// legal transitions. The session is left unchanged.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrCredentialRequired means ending a locked strict session needs a
	// parent credential and none was supplied.
	ErrCredentialRequired = errors.New("session is locked: parent credential required")

	// ErrInvalidCredential means the supplied parent credential was rejected.
	ErrInvalidCredential = errors.New("invalid parent credential")

	// ErrAgentUnavailable mirrors the channel's "no usable response" failure.
	ErrAgentUnavailable = agent.ErrUnavailable
)
