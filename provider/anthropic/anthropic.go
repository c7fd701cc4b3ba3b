// Package anthropic provides a Provider implementation backed by the
// Anthropic Messages API (including tool use). It adapts parley's normalized
// Request/Response structures into the SDK's message format and back.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/provider"
)

// Options configures the Anthropic provider adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind the generic
// provider.Provider interface.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Anthropic provider using the official client.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic provider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Generate implements provider.Provider for chat + tool use.
func (p *Provider) Generate(ctx context.Context, req provider.Request, optFns ...func(o *provider.Options)) (*provider.Response, error) {
	callOpts := provider.ApplyOptions(provider.Options{Temperature: p.opts.Temperature}, optFns...)

	ctx, cancel := provider.WithCallTimeout(ctx, callOpts)
	defer cancel()

	model := p.opts.Model
	if callOpts.Model != "" {
		model = anthropic.Model(callOpts.Model)
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(callOpts.Temperature),
	}

	if systemBlocks := buildSystemBlocks(req); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	out := &provider.Response{FinishReason: "stop"}
	if resp.StopReason != "" {
		out.FinishReason = string(resp.StopReason)
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			out.Text += textBlock.Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := map[string]any{}
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = provider.UnmarshalArgs(string(argsBytes))
				}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				ID:   toolBlock.ID,
				Name: toolBlock.Name,
				Args: args,
			})
		}
	}
	// Text and tool calls are mutually exclusive in the normalized response.
	if len(out.ToolCalls) > 0 {
		out.Text = ""
	}
	return out, nil
}

// GenerateText implements provider.Provider.
func (p *Provider) GenerateText(ctx context.Context, prompt string, optFns ...func(o *provider.Options)) (string, error) {
	resp, err := p.Generate(ctx, provider.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	}, optFns...)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateJSON implements provider.Provider by constraining the prompt to the
// schema and decoding the returned object.
func (p *Provider) GenerateJSON(ctx context.Context, prompt string, schema *core.Schema, out any, optFns ...func(o *provider.Options)) error {
	callOpts := provider.ApplyOptions(provider.Options{}, optFns...)
	text, err := p.GenerateText(ctx, provider.JSONPrompt(prompt, schema, callOpts.SchemaName), optFns...)
	if err != nil {
		return err
	}
	return provider.DecodeJSONResponse(text, out)
}

// buildMessages converts normalized messages to the Anthropic message format.
// Tool results become tool_result blocks inside a following user message as
// the Messages API requires.
func buildMessages(msgs []core.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			continue // handled separately via params.System
		case core.RoleUser:
			if m.Content != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		case core.RoleModel:
			content := buildAssistantContent(m)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		case core.RoleTool:
			id := m.AnsweredCallID()
			if id == "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(id, m.Content, false)))
		default:
			if m.Content != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	return messages
}

func buildAssistantContent(m core.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	if m.Content != "" {
		content = append(content, anthropic.NewTextBlock(m.Content))
	}
	for _, call := range m.ToolCalls {
		var input any = map[string]any{}
		if len(call.Args) > 0 {
			input = call.Args
		}
		content = append(content, anthropic.NewToolUseBlock(call.ID, input, call.Name))
	}
	return content
}

// buildSystemBlocks merges the request instructions and any system-role
// messages into the dedicated system parameter.
func buildSystemBlocks(req provider.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, m := range req.Messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildTools converts parley tool definitions to the Anthropic tool format.
func buildTools(tools []provider.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if t.Parameters != nil {
			params := t.Parameters.AsMap()
			if properties, exists := params["properties"]; exists {
				inputSchema.Properties = properties
			}
			if len(t.Parameters.Required) > 0 {
				inputSchema.Required = append([]string{}, t.Parameters.Required...)
			}
		}
		anthropicTools[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
	}
	return anthropicTools
}

// Info returns metadata describing this Anthropic provider implementation.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:          string(p.opts.Model),
		Vendor:        "anthropic",
		SupportsTools: true,
	}
}
