package core

import "errors"

// ErrSessionNotFound is returned by stores when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions and their append-only message history.
// It is the single source of truth for history: all mutations performed by
// the chat manager and the turn runner go through AppendMessage(s)/SetMode,
// and every mutation is durable before the call returns.
type SessionStore interface {
	Create(s *Session) error
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	AppendMessage(sessionID string, msg Message) error
	// AppendMessages applies a batch atomically; readers never observe a
	// partially appended batch.
	AppendMessages(sessionID string, msgs []Message) error
	SetMode(sessionID string, mode DiscussionMode) error
	Delete(id string) error
}
