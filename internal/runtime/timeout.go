package runtime

import (
	"sync"
	"time"
)

// TimeoutManager arms and disarms per-agent timers, grounded on the
// teacher's TimeoutHandler (internal/agent/timeout.go) but generalized: the
// teacher keys timers by tier with tier-default durations, this keys by
// agent id with the duration coming straight from that agent's own
// AgentConfig.TimeoutMS (spec.md §4.3 "Timeout"). A duration of 0 disables
// the check entirely, matching the teacher's "0 = none" convention.
type TimeoutManager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimeoutManager returns an empty TimeoutManager.
func NewTimeoutManager() *TimeoutManager {
	return &TimeoutManager{timers: make(map[string]*time.Timer)}
}

// Start arms a timer for agentID that calls onTimeout after d elapses. A
// non-positive d is a no-op (timeout disabled). Any previously armed timer
// for agentID is stopped first.
func (m *TimeoutManager) Start(agentID string, d time.Duration, onTimeout func()) {
	if d <= 0 {
		return
	}
	m.Stop(agentID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[agentID] = time.AfterFunc(d, onTimeout)
}

// Stop disarms agentID's timer, if any. Safe to call when no timer is
// armed.
func (m *TimeoutManager) Stop(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[agentID]; ok {
		t.Stop()
		delete(m.timers, agentID)
	}
}

// Active reports whether agentID currently has an armed timer.
func (m *TimeoutManager) Active(agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[agentID]
	return ok
}

// StopAll disarms every outstanding timer. The Supervisor does not call it;
// each agent disarms its own timer when its loop exits.
func (m *TimeoutManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
