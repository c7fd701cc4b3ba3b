package tool

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
	"github.com/parleychat/parley/provider"
)

// Executor dispatches model tool calls to registered tools. Batches are
// executed concurrently; results are returned in the order of the original
// calls regardless of completion order.
type Executor struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewExecutor creates an executor with the given tools registered.
func NewExecutor(logger logging.Logger, tools ...Tool) *Executor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	e := &Executor{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger,
	}
	for _, t := range tools {
		e.tools[t.Name()] = t
	}
	return e
}

// Register adds or replaces a tool.
func (e *Executor) Register(t Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.Name()] = t
}

// Get returns the tool with the given name, if registered.
func (e *Executor) Get(name string) (Tool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tools[name]
	return t, ok
}

// Definitions returns provider-facing definitions for all registered tools,
// sorted by name for a stable prompt layout.
func (e *Executor) Definitions() []provider.ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	defs := make([]provider.ToolDefinition, 0, len(e.tools))
	for _, t := range e.tools {
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ExecuteBatch runs every call concurrently and returns one tool result
// message per call, in the original call order. A call naming an unregistered
// tool yields an empty result rather than an error so the model can observe
// the gap and recover. A failing tool aborts the batch after all siblings
// have settled.
func (e *Executor) ExecuteBatch(ctx context.Context, toolCtx *Context, calls []core.ToolCall) ([]core.Message, error) {
	results := make([]core.Message, len(calls))

	// Plain Group rather than WithContext: one failing tool must not cancel
	// its siblings mid-flight.
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			result, err := e.execute(ctx, toolCtx, call)
			if err != nil {
				return err
			}
			results[i] = core.NewToolResultMessage(call, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) execute(ctx context.Context, toolCtx *Context, call core.ToolCall) (string, error) {
	t, ok := e.Get(call.Name)
	if !ok {
		e.logger.Warn("tool.executor.unknown_tool", "tool", call.Name, "fc_id", call.ID)
		return "", nil
	}
	return t.Call(ctx, toolCtx.WithCallID(call.ID), call.Args)
}
