package models

import "time"

// Message is one immutable event on a cluster's bus (spec.md §3). Sequence
// numbers are gap-free and assigned under the bus's per-cluster lock.
type Message struct {
	Seq       int64          `json:"seq"`
	ClusterID string         `json:"cluster_id"`
	Topic     string         `json:"topic"`
	Publisher string         `json:"publisher"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Reserved topics the orchestrator and its agents treat specially.
const (
	// TopicIssueOpened is the default seed topic published by Supervisor.Start.
	TopicIssueOpened = "ISSUE_OPENED"
	// TopicClusterStop is published by stop_cluster actions; the Supervisor's
	// shutdown detector watches it.
	TopicClusterStop = "CLUSTER_STOP"
	// TopicTaskComplete is the conventional completion-hook topic used by the
	// end-to-end scenario in spec.md §8.
	TopicTaskComplete = "TASK_COMPLETE"
	// TopicAgentError is published when an agent transitions to AgentError.
	TopicAgentError = "AGENT_ERROR"
	// PublisherOrchestrator identifies events published by the Supervisor
	// itself rather than by a named agent.
	PublisherOrchestrator = "orchestrator"
)
