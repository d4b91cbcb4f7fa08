package models

// AgentState is the per-agent state machine state (spec.md §4.3).
type AgentState string

const (
	AgentIdle            AgentState = "idle"
	AgentEvaluating      AgentState = "evaluating"
	AgentBuildingContext AgentState = "building_context"
	AgentExecuting       AgentState = "executing"
	AgentStopped         AgentState = "stopped"
	AgentError           AgentState = "error"
)

// Valid returns true if the state is a known value.
func (s AgentState) Valid() bool {
	switch s {
	case AgentIdle, AgentEvaluating, AgentBuildingContext, AgentExecuting, AgentStopped, AgentError:
		return true
	default:
		return false
	}
}

// ActionKind is the finite set of agent actions (spec.md §4.3).
type ActionKind string

const (
	ActionExecuteTask    ActionKind = "execute_task"
	ActionPublishMessage ActionKind = "publish_message"
	ActionStopCluster    ActionKind = "stop_cluster"
	ActionNoop           ActionKind = "noop"
)

// Valid returns true if the action kind is a known value.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionExecuteTask, ActionPublishMessage, ActionStopCluster, ActionNoop:
		return true
	default:
		return false
	}
}

// Action describes one step an agent's trigger or hook runs. Topic is only
// meaningful for ActionPublishMessage, where Topic/Payload are the event to
// append to the bus; ActionStopCluster uses Payload alone.
type Action struct {
	Kind    ActionKind     `json:"kind"`
	Topic   string         `json:"topic,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Trigger is a (topic, condition, action) rule evaluated against each new
// bus event, in declaration order, first match wins.
type Trigger struct {
	Topic     string      `json:"topic"`
	Condition *Condition  `json:"condition,omitempty"`
	Action    Action      `json:"action"`
}

// Condition is a simple predicate over a bus event's JSON-like payload:
// payload[Field] must equal Equals (when set) to match. Nil means "always
// match" (no predicate beyond the topic).
type Condition struct {
	Field  string `json:"field"`
	Equals any    `json:"equals"`
}

// Matches evaluates the condition against a payload. A nil *Condition
// always matches.
func (c *Condition) Matches(payload map[string]any) bool {
	if c == nil {
		return true
	}
	v, ok := payload[c.Field]
	if !ok {
		return false
	}
	return v == c.Equals
}

// Hooks bundles the post-run actions an agent executes after a provider
// invocation resolves.
type Hooks struct {
	OnComplete *Action `json:"on_complete,omitempty"`
	OnError    *Action `json:"on_error,omitempty"`
}

// AgentConfig is the declarative configuration for one agent (spec.md §3).
type AgentConfig struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Triggers     []Trigger `json:"triggers"`
	Prompt       string    `json:"prompt"`
	Hooks        Hooks     `json:"hooks"`
	TimeoutMS    int64     `json:"timeout_ms"`
	UseDirectAPI bool      `json:"use_direct_api,omitempty"`
	JSONSchema   map[string]any `json:"json_schema,omitempty"`
	Level        Level     `json:"level,omitempty"`
	Effort       ReasoningEffort `json:"reasoning_effort,omitempty"`
}

// RoleOrchestrator is the special role that grants stop-authority: an agent
// with this role publishing ActionStopCluster is the expected path to
// CLUSTER_STOP, though any agent may do so.
const RoleOrchestrator = "orchestrator"

// AgentSnapshot is a read-only view of one agent's runtime state.
type AgentSnapshot struct {
	ID         string     `json:"id"`
	State      AgentState `json:"state"`
	Cursor     int64      `json:"cursor"`
	Iteration  int        `json:"iteration"`
	PID        int        `json:"pid,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	TokensUsed int64      `json:"tokens_used"`
	CostUSD    float64    `json:"cost_usd"`
}
