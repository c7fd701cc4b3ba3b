package notes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parleychat/parley/core"
)

// Note is a single text note in the corpus.
type Note struct {
	ID      string
	Title   string
	Content string
	Created time.Time
	Updated time.Time
}

// Update carries a partial mutation for an existing note. Nil fields are
// left unchanged.
type Update struct {
	Title   *string
	Content *string
}

// SearchResult pairs a matched note with its relevance score.
type SearchResult struct {
	Note  Note
	Score float64
}

// Manager abstracts the note corpus. Implementations must be safe for
// concurrent use since tool executions may run in parallel.
type Manager interface {
	// CreateNewTextNote creates an empty note and returns it.
	CreateNewTextNote(ctx context.Context) (Note, error)

	// UpdateNote applies a partial update to the note with the given id.
	UpdateNote(ctx context.Context, id string, update Update) error

	// GetNote returns the note with the given id.
	GetNote(ctx context.Context, id string) (Note, error)

	// SearchCorpus returns notes matching the query ranked by relevance,
	// best match first.
	SearchCorpus(ctx context.Context, query string) ([]SearchResult, error)

	// AllNotes returns every note in the corpus.
	AllNotes(ctx context.Context) ([]Note, error)
}

// InMemoryManager is a naive process-local Manager. Search is a linear scan
// with case-insensitive keyword scoring: each query term contributes to the
// score when found in the title (weighted higher) or the content. Suitable
// for tests and demos; swap for a real index for production retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryManager struct {
	mu    sync.RWMutex
	notes map[string]Note
	seq   int
}

var _ Manager = (*InMemoryManager)(nil)

// NewInMemoryManager creates an empty in-memory note corpus.
func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{notes: make(map[string]Note)}
}

// CreateNewTextNote implements Manager.
func (m *InMemoryManager) CreateNewTextNote(_ context.Context) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	now := time.Now()
	note := Note{
		ID:      fmt.Sprintf("note_%d_%s", m.seq, core.NewID()),
		Created: now,
		Updated: now,
	}
	m.notes[note.ID] = note
	return note, nil
}

// UpdateNote implements Manager.
func (m *InMemoryManager) UpdateNote(_ context.Context, id string, update Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, exists := m.notes[id]
	if !exists {
		return fmt.Errorf("note %q not found", id)
	}
	if update.Title != nil {
		note.Title = *update.Title
	}
	if update.Content != nil {
		note.Content = *update.Content
	}
	note.Updated = time.Now()
	m.notes[id] = note
	return nil
}

// GetNote implements Manager.
func (m *InMemoryManager) GetNote(_ context.Context, id string) (Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	note, exists := m.notes[id]
	if !exists {
		return Note{}, fmt.Errorf("note %q not found", id)
	}
	return note, nil
}

// SearchCorpus implements Manager. Each whitespace-separated query term is
// matched case-insensitively against titles and contents; title hits score
// higher than content hits. Notes with zero score are excluded. Ties break
// on note id for deterministic ordering.
func (m *InMemoryManager) SearchCorpus(_ context.Context, query string) ([]SearchResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0)
	for _, note := range m.notes {
		score := scoreNote(note, terms)
		if score > 0 {
			results = append(results, SearchResult{Note: note, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Note.ID < results[j].Note.ID
	})
	return results, nil
}

// AllNotes implements Manager. Notes are returned sorted by creation time.
func (m *InMemoryManager) AllNotes(_ context.Context) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Note, 0, len(m.notes))
	for _, note := range m.notes {
		all = append(all, note)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Created.Equal(all[j].Created) {
			return all[i].ID < all[j].ID
		}
		return all[i].Created.Before(all[j].Created)
	})
	return all, nil
}

func scoreNote(note Note, terms []string) float64 {
	title := strings.ToLower(note.Title)
	content := strings.ToLower(note.Content)
	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2.0
		}
		if strings.Contains(content, term) {
			score += 1.0
		}
	}
	return score
}
