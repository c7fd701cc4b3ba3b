package core

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// AgentProfile is a configured persona that can be invoked to produce a
// conversational turn. Name must be unique within a session's participant set
// since it doubles as the mention / moderator lookup key.
type AgentProfile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	SystemInstruction string    `json:"system_instruction"`
	Icon              string    `json:"icon"`
	Color             string    `json:"color"`
	CreatedAt         time.Time `json:"created_at"`
	IsCustom          bool      `json:"is_custom"`
}

// NewAgentProfile creates an agent profile with a generated id.
func NewAgentProfile(name, description, systemInstruction string) AgentProfile {
	return AgentProfile{
		ID:                NewID(),
		Name:              name,
		Description:       description,
		SystemInstruction: systemInstruction,
		CreatedAt:         time.Now().UTC(),
	}
}

// Roster is the read-mostly registry of known agents. Writes replace the
// backing map wholesale (copy-on-write) so concurrent readers are never
// corrupted by an in-progress append.
type Roster struct {
	mu     sync.RWMutex
	agents map[string]AgentProfile // keyed by agent id
}

// NewRoster constructs a roster pre-populated with the given agents.
func NewRoster(agents ...AgentProfile) *Roster {
	m := make(map[string]AgentProfile, len(agents))
	for _, a := range agents {
		m[a.ID] = a
	}
	return &Roster{agents: m}
}

// Add registers a new agent. Registering an id twice replaces the profile.
func (r *Roster) Add(a AgentProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]AgentProfile, len(r.agents)+1)
	for k, v := range r.agents {
		next[k] = v
	}
	next[a.ID] = a
	r.agents = next
}

// Get returns the agent with the given id.
func (r *Roster) Get(id string) (AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// FindByName returns the agent with the given display name.
func (r *Roster) FindByName(name string) (AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentProfile{}, false
}

// All returns every registered agent in stable display order (by name).
func (r *Roster) All() []AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]AgentProfile, 0, len(r.agents))
	for _, a := range r.agents {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Resolve maps participant ids to profiles, failing on a dangling reference.
func (r *Roster) Resolve(ids []string) ([]AgentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]AgentProfile, 0, len(ids))
	for _, id := range ids {
		a, ok := r.agents[id]
		if !ok {
			return nil, fmt.Errorf("unknown agent id %q", id)
		}
		res = append(res, a)
	}
	return res, nil
}
