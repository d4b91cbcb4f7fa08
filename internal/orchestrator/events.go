// Package orchestrator implements the Orchestrator Supervisor (spec.md
// §4.4): the top-level lifecycle owner that starts/stops/kills clusters,
// wires each cluster's isolation/bus/agents together, and watches for the
// reserved CLUSTER_STOP topic.
package orchestrator

import (
	"log"
	"sync/atomic"
	"time"
)

// EventType tags a lifecycle notification about a cluster as a whole,
// distinct from the per-agent bus events the agents themselves publish.
type EventType string

const (
	EventClusterStarting EventType = "cluster_starting"
	EventClusterRunning  EventType = "cluster_running"
	EventClusterStopping EventType = "cluster_stopping"
	EventClusterStopped  EventType = "cluster_stopped"
	EventClusterError    EventType = "cluster_error"
)

// Event is one cluster-lifecycle notification.
type Event struct {
	Type      EventType
	ClusterID string
	Message   string
	Timestamp time.Time
}

// EventEmitter fans cluster lifecycle events out to whatever is watching
// (the TUI footer, a log sink) without letting a slow consumer block the
// Supervisor. Grounded on the teacher's internal/orchestrator/event_emitter.go:
// a buffered channel, one non-blocking send, one 100ms-bounded retry, then
// drop with a rate-limited warning.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an emitter with the given channel buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{events: make(chan Event, bufferSize)}
}

// Emit delivers event to any subscriber, preferring not to block the
// caller (the Supervisor's single control goroutine).
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s cluster=%s", count, event.Type, event.ClusterID)
		}
	}
}

// DroppedCount returns the number of events dropped since creation.
func (e *EventEmitter) DroppedCount() uint64 { return e.droppedCount.Load() }

// Events exposes the read side for subscribers.
func (e *EventEmitter) Events() <-chan Event { return e.events }

// Close shuts the emitter down. Callers must stop calling Emit first.
func (e *EventEmitter) Close() { close(e.events) }
