package runtime

import "sync"

// RetryPolicy decides whether an agent that just transitioned to AgentError
// is allowed back to AgentIdle (spec.md §4.3's "error -> idle: retry-policy
// allows" transition). Grounded on the teacher's RetryHandler
// (internal/agent/retry.go) but reduced to the boolean contract spec.md
// specifies — the teacher's three-tier learning-search escalation strategy
// has no analogue here since this system has no learning-capture subsystem.
type RetryPolicy struct {
	maxAttempts int

	mu       sync.Mutex
	attempts map[string]int
}

// NewRetryPolicy returns a RetryPolicy that allows up to maxAttempts
// consecutive failures per agent before refusing further retries.
func NewRetryPolicy(maxAttempts int) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryPolicy{maxAttempts: maxAttempts, attempts: make(map[string]int)}
}

// Allow records one more failure for agentID and reports whether the agent
// may retry (transition back to idle) rather than remain in error.
func (p *RetryPolicy) Allow(agentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[agentID]++
	return p.attempts[agentID] <= p.maxAttempts
}

// Reset clears the failure count for agentID, called after a successful
// execution.
func (p *RetryPolicy) Reset(agentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, agentID)
}

// Attempts returns how many consecutive failures have been recorded for
// agentID.
func (p *RetryPolicy) Attempts(agentID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[agentID]
}
