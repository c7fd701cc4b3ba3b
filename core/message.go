package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author category of a chat message.
type Role string

const (
	// RoleUser marks a message typed by the human participant.
	RoleUser Role = "user"
	// RoleModel marks a message produced by an agent.
	RoleModel Role = "model"
	// RoleSystem marks orchestration announcements (moderator rationale etc.).
	RoleSystem Role = "system"
	// RoleTool marks the result of an executed tool call.
	RoleTool Role = "tool"
)

// Status tracks the delivery state of a message for display purposes.
type Status string

const (
	// StatusThinking indicates the turn is still waiting on the provider.
	StatusThinking Status = "thinking"
	// StatusStreaming indicates partial content is being delivered.
	StatusStreaming Status = "streaming"
	// StatusDone indicates the message is final.
	StatusDone Status = "done"
)

// ToolCall describes a structured request from the model to invoke a named
// side-effecting action. ID is absent only for providers that do not supply
// call identifiers.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// SourceNote references a note that grounded an agent's final answer.
type SourceNote struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GroundingChunk is an opaque web-citation record attached by providers that
// perform their own retrieval. The orchestration core never inspects it.
type GroundingChunk map[string]any

// Message is one entry in a session's append-only history.
//
// Invariants:
//   - A tool message either carries ToolCallID or a single-element ToolCalls
//     list identifying which call it answers.
//   - A model message with a non-empty ToolCalls list carries no answer text
//     for that turn; text and tool calls are mutually exclusive per message.
type Message struct {
	ID          string           `json:"id"`
	Role        Role             `json:"role"`
	Content     string           `json:"content"`
	ToolCalls   []ToolCall       `json:"tool_calls,omitempty"`
	ToolCallID  string           `json:"tool_call_id,omitempty"`
	Persona     string           `json:"persona,omitempty"`
	SourceNotes []SourceNote     `json:"source_notes,omitempty"`
	Grounding   []GroundingChunk `json:"grounding_chunks,omitempty"`
	Status      Status           `json:"status,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewID generates a new unique identifier for messages and sessions.
func NewID() string { return uuid.NewString() }

func newMessage(role Role) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Status:    StatusDone,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	m := newMessage(RoleUser)
	m.Content = text
	return m
}

// NewModelMessage creates a final agent answer attributed to a persona.
func NewModelMessage(persona, text string) Message {
	m := newMessage(RoleModel)
	m.Persona = persona
	m.Content = text
	return m
}

// NewToolCallMessage creates the model message announcing one round of tool
// calls. Content stays empty; the final answer arrives in a later message.
func NewToolCallMessage(persona string, calls []ToolCall) Message {
	m := newMessage(RoleModel)
	m.Persona = persona
	m.ToolCalls = calls
	return m
}

// NewToolResultMessage creates the tool message answering a single call.
// When the provider supplied a call id the back-reference uses ToolCallID;
// otherwise the originating call is embedded as a single-element ToolCalls
// list so pairing stays possible.
func NewToolResultMessage(call ToolCall, result string) Message {
	m := newMessage(RoleTool)
	m.Content = result
	if call.ID != "" {
		m.ToolCallID = call.ID
	} else {
		m.ToolCalls = []ToolCall{call}
	}
	return m
}

// NewSystemMessage creates an orchestration announcement message.
func NewSystemMessage(text string) Message {
	m := newMessage(RoleSystem)
	m.Content = text
	return m
}

// HasToolCalls reports whether this model message requests tool execution.
func (m Message) HasToolCalls() bool { return m.Role == RoleModel && len(m.ToolCalls) > 0 }

// AnsweredCallID returns the id of the tool call this tool message answers,
// or the empty string when the message is not a tool result or the provider
// supplied no id.
func (m Message) AnsweredCallID() string {
	if m.Role != RoleTool {
		return ""
	}
	if m.ToolCallID != "" {
		return m.ToolCallID
	}
	if len(m.ToolCalls) == 1 {
		return m.ToolCalls[0].ID
	}
	return ""
}

// IsFinal reports whether the message represents settled content (not a
// thinking or streaming placeholder).
func (m Message) IsFinal() bool { return m.Status == "" || m.Status == StatusDone }
