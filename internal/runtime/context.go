package runtime

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// placeholderPattern matches "{{field}}" template placeholders in an agent's
// prompt template.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// systemPreamble is prepended to every assembled prompt, grounded on the
// teacher's buildPrompt's fixed lead-in string (executor_prompt.go).
const systemPreamble = "You are an agent in a cooperating cluster reacting to a single triggering event.\n\n"

// BuildPrompt assembles the single prompt string for an execute_task action
// (spec.md §4.3 "Context assembly"): substitutes the triggering event's
// payload into the agent's prompt template, prepends a system preamble, and
// appends the serialized JSON schema when the agent requests structured
// output.
func BuildPrompt(cfg models.AgentConfig, trigger models.Message) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)

	sb.WriteString(substitute(cfg.Prompt, trigger.Payload))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("\nTriggering topic: %s\n", trigger.Topic))

	if cfg.JSONSchema != nil {
		schema, err := json.MarshalIndent(cfg.JSONSchema, "", "  ")
		if err == nil {
			sb.WriteString("\nRespond with JSON matching this schema:\n")
			sb.WriteString(string(schema))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// substitute replaces every "{{field}}" placeholder in template with the
// stringified value of payload[field]. A placeholder with no matching key is
// left untouched, since a template author may reference an optional field
// that is only sometimes present in the triggering payload.
func substitute(template string, payload map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		key := sub[1]
		v, ok := payload[key]
		if !ok {
			return match
		}
		return stringify(v)
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
