package store

import (
	"sort"
	"sync"

	"github.com/parleychat/parley/core"
)

// InMemoryStore is a volatile core.SessionStore storing sessions in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demos. Each returned session is cloned to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create stores a clone of the provided session.
func (s *InMemoryStore) Create(sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a clone of an existing session.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// List returns clones of all sessions ordered by creation time.
func (s *InMemoryStore) List() ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

// AppendMessage adds one message to an existing session's history.
func (s *InMemoryStore) AppendMessage(sessionID string, msg core.Message) error {
	return s.AppendMessages(sessionID, []core.Message{msg})
}

// AppendMessages applies the batch atomically under the store lock.
func (s *InMemoryStore) AppendMessages(sessionID string, msgs []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.AddMessages(msgs)
	return nil
}

// SetMode switches the session's discussion mode.
func (s *InMemoryStore) SetMode(sessionID string, mode core.DiscussionMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.SetMode(mode)
	return nil
}

// Delete removes a session.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}
