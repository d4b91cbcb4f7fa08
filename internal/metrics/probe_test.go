package metrics

import (
	"os"
	"testing"
	"time"
)

func TestSampleSelf(t *testing.T) {
	p := New()
	pid := os.Getpid()

	s1, err := p.Sample(pid)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s1.PID != pid {
		t.Errorf("PID = %d, want %d", s1.PID, pid)
	}
	if s1.CPUPercent != 0 {
		t.Errorf("first sample CPUPercent = %v, want 0 (no prior snapshot)", s1.CPUPercent)
	}
	if s1.RSSBytes <= 0 {
		t.Errorf("RSSBytes = %d, want > 0 for a live process", s1.RSSBytes)
	}

	time.Sleep(10 * time.Millisecond)

	s2, err := p.Sample(pid)
	if err != nil {
		t.Fatalf("second Sample: %v", err)
	}
	if s2.CPUPercent < 0 {
		t.Errorf("CPUPercent = %v, want >= 0", s2.CPUPercent)
	}
}

func TestSampleUnknownPID(t *testing.T) {
	p := New()
	if _, err := p.Sample(-1); err == nil {
		t.Error("expected error for invalid pid")
	}
}

func TestForgetClearsSnapshot(t *testing.T) {
	p := New()
	pid := os.Getpid()

	if _, err := p.Sample(pid); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	p.Forget(pid)

	p.mu.Lock()
	_, ok := p.last[pid]
	p.mu.Unlock()
	if ok {
		t.Error("expected snapshot to be forgotten")
	}
}
