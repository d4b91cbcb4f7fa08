package runtime

import (
	"testing"
	"time"
)

func TestTimeoutManagerFires(t *testing.T) {
	m := NewTimeoutManager()
	fired := make(chan struct{}, 1)

	m.Start("a1", 5*time.Millisecond, func() { fired <- struct{}{} })
	if !m.Active("a1") {
		t.Fatal("expected timer to be active immediately after Start")
	}

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout callback did not fire in time")
	}
}

func TestTimeoutManagerZeroDurationIsNoop(t *testing.T) {
	m := NewTimeoutManager()
	m.Start("a1", 0, func() { t.Fatal("should never fire") })
	if m.Active("a1") {
		t.Error("a zero duration should not arm a timer")
	}
}

func TestTimeoutManagerStopPreventsFire(t *testing.T) {
	m := NewTimeoutManager()
	fired := make(chan struct{}, 1)

	m.Start("a1", 20*time.Millisecond, func() { fired <- struct{}{} })
	m.Stop("a1")

	select {
	case <-fired:
		t.Error("callback fired after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	if m.Active("a1") {
		t.Error("timer should no longer be active after Stop")
	}
}

func TestTimeoutManagerStopAll(t *testing.T) {
	m := NewTimeoutManager()
	m.Start("a1", time.Second, func() {})
	m.Start("a2", time.Second, func() {})
	m.StopAll()
	if m.Active("a1") || m.Active("a2") {
		t.Error("expected all timers inactive after StopAll")
	}
}
