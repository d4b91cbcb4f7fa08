package runtime

import (
	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// runAction executes a single Action against the bus, in the same state
// transition as the result that produced it (spec.md §4.3 "Hooks"). Only
// publish_message and stop_cluster produce a side effect here; execute_task
// is handled by the caller (it drives a new invocation, not a hook) and
// noop is intentionally a no-op.
func runAction(b *bus.Bus, clusterID, agentID string, action *models.Action) {
	if action == nil {
		return
	}
	switch action.Kind {
	case models.ActionPublishMessage:
		b.Publish(bus.PublishInput{
			ClusterID: clusterID,
			Topic:     action.Topic,
			Publisher: agentID,
			Payload:   action.Payload,
		})
	case models.ActionStopCluster:
		b.Publish(bus.PublishInput{
			ClusterID: clusterID,
			Topic:     models.TopicClusterStop,
			Publisher: agentID,
			Payload:   action.Payload,
		})
	case models.ActionExecuteTask, models.ActionNoop:
		// Not valid as a hook outcome; nothing to do.
	}
}
