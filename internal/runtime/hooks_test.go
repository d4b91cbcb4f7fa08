package runtime

import (
	"testing"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

func TestRunActionPublishMessage(t *testing.T) {
	b := bus.New()
	action := &models.Action{Kind: models.ActionPublishMessage, Topic: "TASK_COMPLETE", Payload: map[string]any{"ok": true}}

	runAction(b, "c1", "worker", action)

	msgs := b.Query("c1", bus.Filter{Topic: "TASK_COMPLETE"})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Publisher != "worker" {
		t.Errorf("Publisher = %q, want worker", msgs[0].Publisher)
	}
}

func TestRunActionStopCluster(t *testing.T) {
	b := bus.New()
	action := &models.Action{Kind: models.ActionStopCluster}

	runAction(b, "c1", "orchestrator", action)

	msgs := b.Query("c1", bus.Filter{Topic: models.TopicClusterStop})
	if len(msgs) != 1 {
		t.Fatalf("got %d CLUSTER_STOP messages, want 1", len(msgs))
	}
}

func TestRunActionNilIsNoop(t *testing.T) {
	b := bus.New()
	runAction(b, "c1", "worker", nil)
	if got := b.LastSeq("c1"); got != 0 {
		t.Errorf("LastSeq = %d, want 0 (no publish for nil action)", got)
	}
}

func TestRunActionNoopKindIsNoop(t *testing.T) {
	b := bus.New()
	runAction(b, "c1", "worker", &models.Action{Kind: models.ActionNoop})
	if got := b.LastSeq("c1"); got != 0 {
		t.Errorf("LastSeq = %d, want 0", got)
	}
}
