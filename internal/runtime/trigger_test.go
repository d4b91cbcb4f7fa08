package runtime

import (
	"testing"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

func TestEvaluateFirstMatchWins(t *testing.T) {
	triggers := []models.Trigger{
		{Topic: "ISSUE_OPENED", Action: models.Action{Kind: models.ActionExecuteTask}},
		{Topic: "ISSUE_OPENED", Action: models.Action{Kind: models.ActionNoop}},
	}
	events := []models.Message{
		{Seq: 1, Topic: "ISSUE_OPENED", Payload: map[string]any{}},
	}

	trig, evt, matched := evaluate(triggers, events)
	if !matched {
		t.Fatal("expected a match")
	}
	if trig.Action.Kind != models.ActionExecuteTask {
		t.Errorf("Action.Kind = %v, want ActionExecuteTask (first trigger)", trig.Action.Kind)
	}
	if evt.Seq != 1 {
		t.Errorf("evt.Seq = %d, want 1", evt.Seq)
	}
}

func TestEvaluateConditionGating(t *testing.T) {
	triggers := []models.Trigger{
		{Topic: "TASK_COMPLETE", Condition: &models.Condition{Field: "status", Equals: "ok"}, Action: models.Action{Kind: models.ActionStopCluster}},
	}
	events := []models.Message{
		{Seq: 1, Topic: "TASK_COMPLETE", Payload: map[string]any{"status": "failed"}},
		{Seq: 2, Topic: "TASK_COMPLETE", Payload: map[string]any{"status": "ok"}},
	}

	_, evt, matched := evaluate(triggers, events)
	if !matched {
		t.Fatal("expected the second event to match")
	}
	if evt.Seq != 2 {
		t.Errorf("evt.Seq = %d, want 2 (first event's condition should not match)", evt.Seq)
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	triggers := []models.Trigger{{Topic: "OTHER_TOPIC", Action: models.Action{Kind: models.ActionNoop}}}
	events := []models.Message{{Seq: 1, Topic: "ISSUE_OPENED"}}

	_, _, matched := evaluate(triggers, events)
	if matched {
		t.Error("expected no match for an unrelated topic")
	}
}

func TestHighestSeqAdvancesRegardlessOfMatch(t *testing.T) {
	events := []models.Message{{Seq: 3}, {Seq: 7}, {Seq: 5}}
	got := highestSeq(1, events)
	if got != 7 {
		t.Errorf("highestSeq = %d, want 7", got)
	}
}

func TestHighestSeqEmptyEvents(t *testing.T) {
	if got := highestSeq(4, nil); got != 4 {
		t.Errorf("highestSeq with no events = %d, want cursor unchanged (4)", got)
	}
}
