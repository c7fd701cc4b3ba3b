package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/parleychat/parley/core"
)

// Mock is a lightweight in-memory Provider useful for tests & examples.
//
// Behavior is scripted either with canned responses keyed by the last message
// text (AddResponse) or, for full control, with the GenerateFn / JSONFn
// hooks. Every Generate call is recorded so tests can assert on the exact
// request each agent saw.
type Mock struct {
	mu            sync.Mutex
	info          Info
	responses     map[string]string
	queued        []*Response
	recorded      []Request
	GenerateFn    func(ctx context.Context, req Request) (*Response, error)
	JSONFn        func(ctx context.Context, prompt string, schema *core.Schema, out any) error
	GenerateTexts map[string]string
}

// NewMock constructs a Mock with basic tool support enabled.
func NewMock() *Mock {
	return &Mock{
		info:          Info{Name: "mock-1", Vendor: "mock", SupportsTools: true},
		responses:     make(map[string]string),
		GenerateTexts: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input text.
func (m *Mock) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = response
}

// QueueResponse appends a scripted response consumed in FIFO order before
// canned completions are consulted.
func (m *Mock) QueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, resp)
}

// Requests returns a copy of every recorded Generate request.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.recorded))
	copy(reqs, m.recorded)
	return reqs
}

// Generate implements Provider.
func (m *Mock) Generate(ctx context.Context, req Request, _ ...func(o *Options)) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.recorded = append(m.recorded, req)
	fn := m.GenerateFn
	if fn == nil && len(m.queued) > 0 {
		resp := m.queued[0]
		m.queued = m.queued[1:]
		m.mu.Unlock()
		return resp, nil
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	var inputText string
	if len(req.Messages) > 0 {
		inputText = req.Messages[len(req.Messages)-1].Content
	}

	m.mu.Lock()
	full := m.responses[inputText]
	m.mu.Unlock()
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return &Response{Text: full, FinishReason: "stop"}, nil
}

// GenerateText implements Provider.
func (m *Mock) GenerateText(ctx context.Context, prompt string, _ ...func(o *Options)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	text, ok := m.GenerateTexts[prompt]
	m.mu.Unlock()
	if ok {
		return text, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// GenerateJSON implements Provider. Without a JSONFn hook it fails, since a
// meaningful object cannot be fabricated for an arbitrary schema.
func (m *Mock) GenerateJSON(ctx context.Context, prompt string, schema *core.Schema, out any, _ ...func(o *Options)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.JSONFn != nil {
		return m.JSONFn(ctx, prompt, schema, out)
	}
	return fmt.Errorf("mock provider: no JSONFn configured")
}

// Info implements Provider.
func (m *Mock) Info() Info { return m.info }
