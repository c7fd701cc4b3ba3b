package notes

import (
	"context"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCreateAndUpdateNote(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()

	note, err := m.CreateNewTextNote(ctx)
	if err != nil {
		t.Fatalf("CreateNewTextNote failed: %v", err)
	}
	if note.ID == "" {
		t.Fatal("expected a non-empty note id")
	}
	if note.Title != "" || note.Content != "" {
		t.Fatal("new note should be empty")
	}

	err = m.UpdateNote(ctx, note.ID, Update{Title: strPtr("Roadmap"), Content: strPtr("Ship v1 in Q3")})
	if err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}

	got, err := m.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Title != "Roadmap" || got.Content != "Ship v1 in Q3" {
		t.Fatalf("unexpected note after update: %+v", got)
	}
}

func TestUpdateNotePartial(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()

	note, _ := m.CreateNewTextNote(ctx)
	_ = m.UpdateNote(ctx, note.ID, Update{Title: strPtr("Title"), Content: strPtr("Body")})
	_ = m.UpdateNote(ctx, note.ID, Update{Content: strPtr("New body")})

	got, _ := m.GetNote(ctx, note.ID)
	if got.Title != "Title" {
		t.Fatalf("title should be unchanged, got %q", got.Title)
	}
	if got.Content != "New body" {
		t.Fatalf("content should be updated, got %q", got.Content)
	}
}

func TestUpdateNoteUnknownID(t *testing.T) {
	m := NewInMemoryManager()
	if err := m.UpdateNote(context.Background(), "missing", Update{Title: strPtr("x")}); err == nil {
		t.Fatal("expected error for unknown note id")
	}
}

func TestSearchCorpusRanking(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()

	seed := func(title, content string) Note {
		note, _ := m.CreateNewTextNote(ctx)
		_ = m.UpdateNote(ctx, note.ID, Update{Title: strPtr(title), Content: strPtr(content)})
		got, _ := m.GetNote(ctx, note.ID)
		return got
	}

	titleHit := seed("Release planning", "Discuss the schedule")
	contentHit := seed("Standup", "We should start release validation")
	seed("Groceries", "Milk and eggs")

	results, err := m.SearchCorpus(ctx, "release")
	if err != nil {
		t.Fatalf("SearchCorpus failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Note.ID != titleHit.ID {
		t.Fatalf("title match should rank first, got %q", results[0].Note.Title)
	}
	if results[1].Note.ID != contentHit.ID {
		t.Fatalf("content match should rank second, got %q", results[1].Note.Title)
	}
	if results[0].Score <= results[1].Score {
		t.Fatal("title hit should score higher than content hit")
	}
}

func TestSearchCorpusCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()

	note, _ := m.CreateNewTextNote(ctx)
	_ = m.UpdateNote(ctx, note.ID, Update{Title: strPtr("API Design"), Content: strPtr("REST endpoints")})

	results, _ := m.SearchCorpus(ctx, "api")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchCorpusEmptyQuery(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()
	note, _ := m.CreateNewTextNote(ctx)
	_ = m.UpdateNote(ctx, note.ID, Update{Title: strPtr("Something")})

	results, _ := m.SearchCorpus(ctx, "   ")
	if len(results) != 0 {
		t.Fatalf("blank query should return no results, got %d", len(results))
	}
}

func TestAllNotesOrder(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryManager()
	first, _ := m.CreateNewTextNote(ctx)
	second, _ := m.CreateNewTextNote(ctx)

	all, err := m.AllNotes(ctx)
	if err != nil {
		t.Fatalf("AllNotes failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID {
		t.Fatal("notes should be ordered by creation time")
	}
}
