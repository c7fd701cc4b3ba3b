package core

import (
	"sync"
	"time"
)

// DiscussionMode is the policy governing which agents respond, and in what
// order, to an incoming user message.
type DiscussionMode string

const (
	// ModeConcurrent lets every responding agent answer at once against the
	// same history snapshot.
	ModeConcurrent DiscussionMode = "concurrent"
	// ModeTurnBased runs responding agents sequentially, each seeing the
	// previous agent's output.
	ModeTurnBased DiscussionMode = "turn_based"
	// ModeModerated lets a moderator agent pick speakers one at a time.
	ModeModerated DiscussionMode = "moderated"
)

// Valid reports whether m is one of the known discussion modes.
func (m DiscussionMode) Valid() bool {
	switch m {
	case ModeConcurrent, ModeTurnBased, ModeModerated:
		return true
	}
	return false
}

// Session is a persistent conversation with a fixed agent roster and a single
// active discussion mode. It is safe for concurrent access.
//
// Contract:
//   - History is append-only; prior messages are never mutated in place.
//   - Messages returns a defensive copy to avoid external mutation.
//   - ConversationHistory filters history to settled user/model/tool messages
//     suitable for providing conversational context to models.
//   - Clone performs deep copies of slices for safe divergence.
type Session struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ParticipantIDs []string       `json:"participant_ids"`
	Mode           DiscussionMode `json:"discussion_mode"`
	History        []Message      `json:"history"`
	Created        time.Time      `json:"created"`
	Updated        time.Time      `json:"updated"`
	mu             sync.RWMutex
}

// NewSession creates an empty session with a generated id.
func NewSession(name string, mode DiscussionMode, participantIDs ...string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             NewID(),
		Name:           name,
		ParticipantIDs: append([]string{}, participantIDs...),
		Mode:           mode,
		History:        []Message{},
		Created:        now,
		Updated:        now,
	}
}

// AddMessage appends a message to the history updating the Updated timestamp.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msg)
	s.Updated = time.Now().UTC()
}

// AddMessages appends a batch of messages as one atomic mutation. Readers
// never observe a partially applied batch.
func (s *Session) AddMessages(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msgs...)
	s.Updated = time.Now().UTC()
}

// Messages returns a defensive copy of the full history.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.History))
	copy(msgs, s.History)
	return msgs
}

// Len returns the current history length.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.History)
}

// ConversationHistory returns settled user/model/tool messages in causal
// order, excluding system announcements and in-flight placeholders.
func (s *Session) ConversationHistory() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Message, 0, len(s.History))
	for _, m := range s.History {
		if m.Role == RoleSystem || !m.IsFinal() {
			continue
		}
		res = append(res, m)
	}
	return res
}

// SetMode switches the discussion mode. The switch takes effect on the next
// incoming message only; in-flight turns are not retargeted.
func (s *Session) SetMode(mode DiscussionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mode = mode
	s.Updated = time.Now().UTC()
}

// GetMode returns the currently configured discussion mode.
func (s *Session) GetMode() DiscussionMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Mode
}

// Participants returns a copy of the participant agent ids.
func (s *Session) Participants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.ParticipantIDs))
	copy(ids, s.ParticipantIDs)
	return ids
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:             s.ID,
		Name:           s.Name,
		ParticipantIDs: make([]string, len(s.ParticipantIDs)),
		Mode:           s.Mode,
		History:        make([]Message, len(s.History)),
		Created:        s.Created,
		Updated:        s.Updated,
	}
	copy(clone.ParticipantIDs, s.ParticipantIDs)
	copy(clone.History, s.History)
	return clone
}
