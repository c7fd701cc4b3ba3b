// Package openai provides a Provider implementation backed by the OpenAI
// Chat Completions API (including function/tool calling). It adapts parley's
// normalized Request/Response structures into the SDK's message format and
// back.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/provider"
)

// Options configure the OpenAI provider adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Provider wraps the OpenAI Chat Completions API behind the generic
// provider.Provider interface.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new OpenAI provider using the official client.
func New(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Generate implements provider.Provider for chat + tool calling.
func (p *Provider) Generate(ctx context.Context, req provider.Request, optFns ...func(o *provider.Options)) (*provider.Response, error) {
	callOpts := provider.ApplyOptions(provider.Options{Model: p.opts.Model, Temperature: p.opts.Temperature}, optFns...)

	ctx, cancel := provider.WithCallTimeout(ctx, callOpts)
	defer cancel()

	params := p.buildParams(req, callOpts)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	ch0 := resp.Choices[0]
	out := &provider.Response{
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: provider.UnmarshalArgs(tc.Function.Arguments),
		})
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

// buildParams assembles the OpenAI request parameters including tool definitions.
func (p *Provider) buildParams(req provider.Request, callOpts provider.Options) openai.ChatCompletionNewParams {
	model := p.opts.Model
	if callOpts.Model != "" {
		model = callOpts.Model
	}
	temperature := p.opts.Temperature
	if callOpts.Temperature != 0 {
		temperature = callOpts.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters.AsMap(),
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts normalized messages into OpenAI chat messages.
func buildMessages(req provider.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case core.RoleModel:
			if !m.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: assistantToolCalls(m.ToolCalls),
				},
			})
		case core.RoleTool:
			id := m.AnsweredCallID()
			if id == "" {
				// Providers without call ids get the result as plain user text.
				messages = append(messages, openai.UserMessage(m.Content))
				continue
			}
			messages = append(messages, openai.ToolMessage(m.Content, id))
		default:
			if m.Content != "" {
				messages = append(messages, openai.UserMessage(m.Content))
			}
		}
	}
	return messages
}

func assistantToolCalls(calls []core.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	out := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, c := range calls {
		out = append(out, openai.ChatCompletionMessageToolCallParam{
			ID:   c.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: provider.MarshalArgs(c.Args),
			},
		})
	}
	return out
}

// Info returns metadata describing this OpenAI provider implementation.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:          p.opts.Model,
		Vendor:        "openai",
		SupportsTools: true,
	}
}
