// Package runtime implements the Agent Runtime & Trigger Engine (spec.md
// §4.3): the per-agent state machine that evaluates triggers against the
// bus, assembles context, spawns a provider invocation, and runs hooks.
package runtime

import "github.com/daresTheDevil/zeroshot/pkg/models"

// evaluate scans events (already filtered to seq > cursor, in sequence
// order) against triggers and returns the first matching trigger together
// with the event that matched it. Per spec.md §4.3: "for each bus event
// newer than the cursor, in order, the agent iterates its triggers list...
// the first match wins; remaining triggers for that event are ignored."
// Once one event produces a match, evaluation stops there — the cursor
// still advances past every event handed in, matched or not.
func evaluate(triggers []models.Trigger, events []models.Message) (models.Trigger, models.Message, bool) {
	for _, evt := range events {
		for _, trig := range triggers {
			if trig.Topic != evt.Topic {
				continue
			}
			if trig.Condition.Matches(evt.Payload) {
				return trig, evt, true
			}
		}
	}
	return models.Trigger{}, models.Message{}, false
}

// highestSeq returns the largest Seq among events, or cursor unchanged if
// events is empty. The cursor always advances to the highest sequence seen,
// whether or not a trigger fired (spec.md §4.3).
func highestSeq(cursor int64, events []models.Message) int64 {
	for _, e := range events {
		if e.Seq > cursor {
			cursor = e.Seq
		}
	}
	return cursor
}
