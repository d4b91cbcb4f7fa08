package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/daresTheDevil/zeroshot/internal/zserrors"
)

// APIClientConfig mirrors the teacher's api.ClientConfig: direct API key or
// AWS Bedrock backend, both kept and exercised per DESIGN.md.
type APIClientConfig struct {
	Model         anthropic.Model
	APIKey        string
	UseAWSBedrock bool
	AWSRegion     string
	AWSProfile    string
}

// APIClient wraps the Anthropic SDK client plus a token tracker, grounded
// on the teacher's internal/api/client.go Client.
type APIClient struct {
	inner   anthropic.Client
	model   anthropic.Model
	Tracker *TokenTracker
}

// NewAPIClient builds an APIClient from cfg. Returns an error if no API key
// is available and Bedrock was not requested.
func NewAPIClient(cfg APIClientConfig) (*APIClient, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", zserrors.ErrConfigInvalid)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &APIClient{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		Tracker: NewTokenTracker(),
	}, nil
}

// TokenTracker accumulates input/output token counts and an estimated USD
// cost across invocations, grounded on the teacher's api.TokenTracker.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

func NewTokenTracker() *TokenTracker { return &TokenTracker{} }

func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Cost estimates USD cost using Sonnet-class pricing ($3/1M in, $15/1M out).
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.inputTok)/1_000_000*3.0 + float64(t.outputTok)/1_000_000*15.0
}

// DirectAPIResult is the outcome of DirectInvoke: the raw text, the object
// extracted from it (when a JSON schema was requested), and token usage.
type DirectAPIResult struct {
	Text         string
	Parsed       map[string]any
	InputTokens  int64
	OutputTokens int64
}

// DirectInvoke calls the API directly, bypassing subprocess spawn, for the
// agent runtime's direct-API fast path (spec.md §4.3). When schema is
// non-nil the response is pushed through the resilient extraction ladder:
// strict parse -> fenced code block -> first balanced object -> validation
// error.
func (c *APIClient) DirectInvoke(ctx context.Context, prompt string, schema map[string]any) (DirectAPIResult, error) {
	msg, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if isRateLimit(err) {
			return DirectAPIResult{}, fmt.Errorf("%w: %v", zserrors.ErrRateLimited, err)
		}
		return DirectAPIResult{}, fmt.Errorf("%w: %v", zserrors.ErrTransientProviderFailure, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	c.Tracker.Add(msg.Usage.InputTokens, msg.Usage.OutputTokens)

	result := DirectAPIResult{
		Text:         text.String(),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}

	if schema == nil {
		return result, nil
	}

	parsed, err := ExtractJSON(result.Text)
	if err != nil {
		return result, err
	}
	result.Parsed = parsed
	return result, nil
}

// isRateLimit reports whether err came back from a 429 response. The SDK
// does not expose a distinct rate-limit error type, so this matches on the
// error string the same way the rest of the provider package treats
// transient failures.
func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "overloaded")
}

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON implements spec.md §4.3's resilient JSON-extraction ladder:
// strict parse, then a fenced ```json``` block, then the first balanced
// {...} object, then zserrors.ErrValidation.
func ExtractJSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return obj, nil
	}

	if m := fencedJSONBlock.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &obj); err == nil {
			return obj, nil
		}
	}

	if block := firstBalancedObject(trimmed); block != "" {
		if err := json.Unmarshal([]byte(block), &obj); err == nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w: no valid JSON object found in response", zserrors.ErrValidation)
}

// firstBalancedObject scans text for the first brace-balanced {...} span,
// respecting string literals so braces inside quoted strings don't throw
// off the count.
func firstBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
