package core

import "testing"

func TestSession_AddMessageAndCopy(t *testing.T) {
	s := NewSession("demo", ModeConcurrent, "a1")

	s.AddMessage(NewUserMessage("hi"))
	s.AddMessage(NewModelMessage("Ada", "hello"))

	all := s.Messages()
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}
	orig := all[0].Content
	all[0].Content = "changed"
	if s.Messages()[0].Content != orig {
		t.Error("history slice should be copied on read")
	}
}

func TestSession_AddMessagesBatch(t *testing.T) {
	s := NewSession("demo", ModeTurnBased)
	batch := []Message{
		NewToolCallMessage("Ada", []ToolCall{{ID: "c1", Name: "search_notes"}}),
		NewToolResultMessage(ToolCall{ID: "c1", Name: "search_notes"}, "found"),
	}
	s.AddMessages(batch)
	if s.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", s.Len())
	}
	s.AddMessages(nil)
	if s.Len() != 2 {
		t.Error("empty batch must be a no-op")
	}
}

func TestSession_ConversationHistoryFiltersSystem(t *testing.T) {
	s := NewSession("demo", ModeModerated)
	s.AddMessage(NewUserMessage("hi"))
	s.AddMessage(NewSystemMessage("Moderator: Ada speaks next"))
	s.AddMessage(NewModelMessage("Ada", "hello"))

	hist := s.ConversationHistory()
	if len(hist) != 2 {
		t.Fatalf("expected 2 conversational messages, got %d", len(hist))
	}
	for _, m := range hist {
		if m.Role == RoleSystem {
			t.Error("system messages must be filtered from conversation history")
		}
	}
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("demo", ModeConcurrent, "a1", "a2")
	s.AddMessage(NewUserMessage("hi"))

	clone := s.Clone()
	if clone == s {
		t.Fatal("Clone should be a different pointer")
	}
	clone.AddMessage(NewUserMessage("second"))
	if s.Len() != 1 {
		t.Error("original should not see clone's appended message")
	}
}

func TestDiscussionMode_Valid(t *testing.T) {
	for _, m := range []DiscussionMode{ModeConcurrent, ModeTurnBased, ModeModerated} {
		if !m.Valid() {
			t.Errorf("mode %q should be valid", m)
		}
	}
	if DiscussionMode("debate").Valid() {
		t.Error("unknown mode should not be valid")
	}
}
