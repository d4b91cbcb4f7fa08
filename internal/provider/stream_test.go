package provider

import "testing"

func TestParseLineText(t *testing.T) {
	line := []byte(`{"type":"text","text":"hello"}`)
	event, known, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !known {
		t.Fatal("expected known event")
	}
	if event.Kind != EventText || event.Text != "hello" {
		t.Errorf("event = %+v, want text event with text=hello", event)
	}
}

func TestParseLineToolCall(t *testing.T) {
	line := []byte(`{"type":"tool_call","toolId":"t1","toolName":"read_file","input":{"path":"a.go"}}`)
	event, known, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !known || event.Kind != EventToolCall {
		t.Fatalf("event = %+v, want known tool_call", event)
	}
	if event.Call.ToolID != "t1" || event.Call.ToolName != "read_file" {
		t.Errorf("Call = %+v", event.Call)
	}
}

func TestParseLineResult(t *testing.T) {
	line := []byte(`{"type":"result","success":true,"inputTokens":10,"outputTokens":20}`)
	event, known, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !known || event.Kind != EventResult {
		t.Fatalf("event = %+v, want known result", event)
	}
	if !event.Res.Success || event.Res.InputTokens != 10 || event.Res.OutputTokens != 20 {
		t.Errorf("Res = %+v", event.Res)
	}
}

func TestParseLineUnknownType(t *testing.T) {
	line := []byte(`{"type":"some_future_event"}`)
	event, known, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if known {
		t.Error("expected unknown event type to report known=false")
	}
	if event.Kind != "some_future_event" {
		t.Errorf("Kind = %q, want the raw unknown type preserved", event.Kind)
	}
	if UnknownEventLogCount("some_future_event") < 1 {
		t.Error("expected unknown event to be counted")
	}
}

func TestParseLineMalformed(t *testing.T) {
	_, _, err := ParseLine([]byte(`not json`))
	if err == nil {
		t.Error("expected error for malformed line")
	}
}
