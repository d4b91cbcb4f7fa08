package provider

import (
	"encoding/json"
	"sync"
)

// EventKind tags the neutral stream event union (spec.md §6, §9's "event
// stream union" design note: "implementers should not model them as a bag
// of optional fields").
type EventKind string

const (
	EventText       EventKind = "text"
	EventThinking   EventKind = "thinking"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventResult     EventKind = "result"
)

// ToolCall is the payload of an EventToolCall event.
type ToolCall struct {
	ToolID   string         `json:"toolId"`
	ToolName string         `json:"toolName"`
	Input    map[string]any `json:"input"`
}

// ToolResult is the payload of an EventToolResult event.
type ToolResult struct {
	ToolID  string `json:"toolId"`
	Content string `json:"content"`
	IsError bool   `json:"isError"`
}

// Result is the payload of an EventResult event.
type Result struct {
	Success      bool   `json:"success"`
	InputTokens  int64  `json:"inputTokens,omitempty"`
	OutputTokens int64  `json:"outputTokens,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Event is the provider-neutral tagged union produced by parsing one line
// of provider stdout (spec.md §6 "Streaming event protocol"). Exactly one
// of the payload fields is populated, selected by Kind.
type Event struct {
	Kind     EventKind
	Text     string
	Thinking string
	Call     *ToolCall
	CallRes  *ToolResult
	Res      *Result
	Raw      json.RawMessage
}

// unknownEventCounts tracks unrecognized event types per process, capped at
// 5 logs per type (spec.md §6: "Unknown event types are counted per type
// (capped at 5 logs) and otherwise ignored").
var unknownEventCounts = struct {
	mu     sync.Mutex
	counts map[string]int
}{counts: make(map[string]int)}

// rawLine is the shape common to every provider's stream-json line before
// it is classified into the neutral Event union.
type rawLine struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Thought string          `json:"thinking"`
	ToolID  string          `json:"toolId"`
	ToolNm  string          `json:"toolName"`
	Input   map[string]any  `json:"input"`
	Content string          `json:"content"`
	IsError bool            `json:"isError"`
	Success bool            `json:"success"`
	InTok   int64           `json:"inputTokens"`
	OutTok  int64           `json:"outputTokens"`
	Err     string          `json:"error"`
}

// ParseLine parses one line of provider stdout into the neutral Event
// union. For an unrecognized event type it returns an Event carrying only
// that type as its Kind, and false (the type is counted, per spec.md §6,
// rather than erroring).
func ParseLine(line []byte) (Event, bool, error) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false, err
	}

	switch EventKind(raw.Type) {
	case EventText:
		return Event{Kind: EventText, Text: raw.Text, Raw: json.RawMessage(line)}, true, nil
	case EventThinking:
		return Event{Kind: EventThinking, Thinking: raw.Thought, Raw: json.RawMessage(line)}, true, nil
	case EventToolCall:
		return Event{Kind: EventToolCall, Call: &ToolCall{ToolID: raw.ToolID, ToolName: raw.ToolNm, Input: raw.Input}, Raw: json.RawMessage(line)}, true, nil
	case EventToolResult:
		return Event{Kind: EventToolResult, CallRes: &ToolResult{ToolID: raw.ToolID, Content: raw.Content, IsError: raw.IsError}, Raw: json.RawMessage(line)}, true, nil
	case EventResult:
		return Event{Kind: EventResult, Res: &Result{Success: raw.Success, InputTokens: raw.InTok, OutputTokens: raw.OutTok, Error: raw.Err}, Raw: json.RawMessage(line)}, true, nil
	default:
		countUnknown(raw.Type)
		return Event{Kind: EventKind(raw.Type)}, false, nil
	}
}

func countUnknown(kind string) {
	unknownEventCounts.mu.Lock()
	defer unknownEventCounts.mu.Unlock()
	unknownEventCounts.counts[kind]++
}

// UnknownEventLogCount returns how many times kind has been seen so far,
// for callers implementing the "capped at 5 logs" policy themselves (the
// parser only counts; logging is the caller's concern since it owns the
// logger).
func UnknownEventLogCount(kind string) int {
	unknownEventCounts.mu.Lock()
	defer unknownEventCounts.mu.Unlock()
	return unknownEventCounts.counts[kind]
}
