// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (note search, note creation) with schema
// validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/internal/util"
	"github.com/parleychat/parley/logging"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe; the executor may run tools concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() *core.Schema

	// Call executes the tool with structured arguments and a turn-scoped
	// Context. Arguments are validated against the tool's schema before
	// invocation.
	Call(ctx context.Context, toolCtx *Context, args map[string]any) (string, error)
}

// Context carries turn-scoped state shared with tool implementations: the
// session id, the function call id for correlation, a logger, and a recorder
// for notes that should be attached to the turn's final answer.
type Context struct {
	sessionID string
	callID    string
	logger    logging.Logger

	// recorder is shared between the turn runner and all tool executions of
	// the turn, including clones created by WithCallID.
	recorder *noteRecorder
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []core.SourceNote
}

// NewContext creates a tool context for a single agent turn. The returned
// context may be shared by concurrently executing tools.
func NewContext(sessionID string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Context{
		sessionID: sessionID,
		logger:    logger,
		recorder:  &noteRecorder{},
	}
}

// WithCallID returns a shallow copy of the context bound to a specific
// function call id. The source note recorder is shared with the parent.
func (c *Context) WithCallID(callID string) *Context {
	clone := *c
	clone.callID = callID
	return &clone
}

// SessionID returns the id of the session this turn belongs to.
func (c *Context) SessionID() string { return c.sessionID }

// CallID returns the function call identifier correlating the model request
// with this tool execution.
func (c *Context) CallID() string { return c.callID }

// Logger returns the logger for this tool execution.
func (c *Context) Logger() logging.Logger { return c.logger }

// RecordSourceNotes registers notes consulted by a tool so the turn runner
// can attach them to the final model message.
func (c *Context) RecordSourceNotes(notes ...core.SourceNote) {
	c.recorder.mu.Lock()
	defer c.recorder.mu.Unlock()
	c.recorder.notes = append(c.recorder.notes, notes...)
}

// SourceNotes returns a copy of all notes recorded during this turn.
func (c *Context) SourceNotes() []core.SourceNote {
	c.recorder.mu.Lock()
	defer c.recorder.mu.Unlock()
	out := make([]core.SourceNote, len(c.recorder.notes))
	copy(out, c.recorder.notes)
	return out
}

// ValidationError represents parameter validation errors with detailed
// information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
