package runtime

import "testing"

func TestRetryPolicyAllowsUpToMax(t *testing.T) {
	p := NewRetryPolicy(2)

	if !p.Allow("a1") {
		t.Error("first failure should be allowed")
	}
	if !p.Allow("a1") {
		t.Error("second failure should be allowed")
	}
	if p.Allow("a1") {
		t.Error("third failure should be refused (max attempts is 2)")
	}
}

func TestRetryPolicyResetClearsCount(t *testing.T) {
	p := NewRetryPolicy(1)
	p.Allow("a1")
	p.Reset("a1")
	if got := p.Attempts("a1"); got != 0 {
		t.Errorf("Attempts after Reset = %d, want 0", got)
	}
	if !p.Allow("a1") {
		t.Error("should allow again after reset")
	}
}

func TestRetryPolicyPerAgentIsolation(t *testing.T) {
	p := NewRetryPolicy(1)
	p.Allow("a1")
	p.Allow("a1")
	if !p.Allow("a2") {
		t.Error("a2's attempts should be independent of a1's")
	}
}

func TestNewRetryPolicyNonPositiveDefaultsToOne(t *testing.T) {
	p := NewRetryPolicy(0)
	if p.maxAttempts != 1 {
		t.Errorf("maxAttempts = %d, want 1", p.maxAttempts)
	}
}
