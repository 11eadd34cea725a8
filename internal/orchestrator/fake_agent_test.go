package orchestrator

import (
	"context"
	"sync"

	"github.com/atkw312/website-blocker/internal/agent"
)

// fakeAgent is an in-memory AgentClient for tests. It records every request
// and can be flipped into an unreachable state.
type fakeAgent struct {
	mu          sync.Mutex
	calls       []agent.Request
	pushes      []agent.Request
	unavailable bool
	connected   bool

	stateResp agent.Response // returned for GET_STATE
	endResp   *agent.Response // overrides the default OK for END_SESSION
	startResp *agent.Response // overrides the default OK for START_SESSION
}

func (f *fakeAgent) Call(_ context.Context, req agent.Request) (agent.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unavailable {
		return agent.Response{}, agent.ErrUnavailable
	}
	f.calls = append(f.calls, req)

	switch req.Type {
	case agent.TypeGetState:
		return f.stateResp, nil
	case agent.TypeEndSession:
		if f.endResp != nil {
			return *f.endResp, nil
		}
	case agent.TypeStartSession:
		if f.startResp != nil {
			return *f.startResp, nil
		}
	}
	return agent.Response{Status: agent.StatusOK}, nil
}

func (f *fakeAgent) Push(req agent.Request) (agent.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unavailable || !f.connected {
		return agent.Response{}, agent.ErrUnavailable
	}
	f.pushes = append(f.pushes, req)
	return agent.Response{Status: agent.StatusOK}, nil
}

func (f *fakeAgent) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.unavailable {
		f.connected = true
	}
}

func (f *fakeAgent) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeAgent) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeAgent) callTypes() []agent.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]agent.MessageType, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Type
	}
	return out
}

func (f *fakeAgent) callsOf(t agent.MessageType) []agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []agent.Request
	for _, c := range f.calls {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
