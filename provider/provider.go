package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parleychat/parley/core"
)

// Options carries per-call overrides for a generation request. Zero values
// fall back to the adapter's configured defaults.
type Options struct {
	Model       string
	Temperature float64
	// SchemaName labels the expected object in JSON mode; some backends use
	// it for response-format naming, others only for prompt construction.
	SchemaName string
	// Timeout bounds the provider call when non-zero. The orchestration core
	// sets no timeout of its own; callers may add one without violating the
	// contract.
	Timeout time.Duration
}

// ToolDefinition declaratively exposes a callable tool to the model.
type ToolDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  *core.Schema `json:"parameters"`
}

// Request captures the normalized model input produced by the turn runner.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the settled outcome of one model call: either final text or
// one or more tool calls, never both.
type Response struct {
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Info contains metadata about a provider implementation.
type Info struct {
	Name          string `json:"name"`
	Vendor        string `json:"vendor"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Provider is the capability interface required to drive agent turns.
//
// Generate performs one chat completion with optional tool definitions.
// GenerateText is the plain prompt-to-text convenience used by lightweight
// callers. GenerateJSON asks the backend for an object conforming to a
// restricted JSON schema and unmarshals it into out.
type Provider interface {
	Generate(ctx context.Context, req Request, optFns ...func(o *Options)) (*Response, error)
	GenerateText(ctx context.Context, prompt string, optFns ...func(o *Options)) (string, error)
	GenerateJSON(ctx context.Context, prompt string, schema *core.Schema, out any, optFns ...func(o *Options)) error

	// Info returns information about the provider implementation.
	Info() Info
}

// ApplyOptions folds functional option overrides into a copy of defaults.
func ApplyOptions(defaults Options, optFns ...func(o *Options)) Options {
	opts := defaults
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// WithCallTimeout derives a context honoring Options.Timeout. The returned
// cancel func is always non-nil.
func WithCallTimeout(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// JSONPrompt wraps a prompt with the instructions both adapters use for JSON
// mode: respond with a single object matching the schema, nothing else.
func JSONPrompt(prompt string, schema *core.Schema, schemaName string) string {
	name := schemaName
	if name == "" {
		name = "response"
	}
	schemaBytes, err := json.Marshal(schema.AsMap())
	if err != nil {
		schemaBytes = []byte("{}")
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nRespond with a single JSON object named \"")
	b.WriteString(name)
	b.WriteString("\" that conforms to this JSON schema. Output only the JSON object, no prose and no code fences.\n")
	b.Write(schemaBytes)
	return b.String()
}

// DecodeJSONResponse strips optional code fences from raw model output and
// unmarshals the remaining JSON object into out.
func DecodeJSONResponse(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	// Some backends wrap the object in leading prose despite instructions;
	// fall back to the outermost brace pair.
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode json response: %w", err)
	}
	return nil
}

// MarshalArgs serializes tool-call arguments for SDKs that want a JSON string.
func MarshalArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UnmarshalArgs parses an SDK argument payload into the normalized map form.
// Malformed payloads yield an empty map rather than an error; argument
// validation happens later against the tool schema.
func UnmarshalArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}
