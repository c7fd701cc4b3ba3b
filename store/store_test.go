package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/parleychat/parley/core"
)

// storeUnderTest runs the shared conformance suite against any SessionStore
// implementation.
func storeUnderTest(t *testing.T, newStore func(t *testing.T) core.SessionStore) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("planning", core.ModeTurnBased, "a1", "a2")
		require.NoError(t, s.Create(sess))

		got, err := s.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, "planning", got.Name)
		assert.Equal(t, core.ModeTurnBased, got.GetMode())
		assert.Equal(t, []string{"a1", "a2"}, got.Participants())
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get("missing")
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("AppendPreservesOrder", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("chat", core.ModeConcurrent, "a1")
		require.NoError(t, s.Create(sess))

		require.NoError(t, s.AppendMessage(sess.ID, core.NewUserMessage("first")))
		require.NoError(t, s.AppendMessages(sess.ID, []core.Message{
			core.NewModelMessage("Ada", "second"),
			core.NewModelMessage("Ada", "third"),
		}))

		got, err := s.Get(sess.ID)
		require.NoError(t, err)
		msgs := got.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[0].Content)
		assert.Equal(t, "second", msgs[1].Content)
		assert.Equal(t, "third", msgs[2].Content)
	})

	t.Run("AppendUnknownSession", func(t *testing.T) {
		s := newStore(t)
		err := s.AppendMessage("missing", core.NewUserMessage("hi"))
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("MessageFieldsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("chat", core.ModeConcurrent, "a1")
		require.NoError(t, s.Create(sess))

		call := core.ToolCall{ID: "fc-1", Name: "search_notes", Args: map[string]any{"query": "x"}}
		callMsg := core.NewToolCallMessage("Ada", []core.ToolCall{call})
		resultMsg := core.NewToolResultMessage(call, "found it")
		final := core.NewModelMessage("Ada", "answer")
		final.SourceNotes = []core.SourceNote{{ID: "n1", Title: "Note"}}
		require.NoError(t, s.AppendMessages(sess.ID, []core.Message{callMsg, resultMsg, final}))

		got, err := s.Get(sess.ID)
		require.NoError(t, err)
		msgs := got.Messages()
		require.Len(t, msgs, 3)
		require.Len(t, msgs[0].ToolCalls, 1)
		assert.Equal(t, "search_notes", msgs[0].ToolCalls[0].Name)
		assert.Equal(t, "fc-1", msgs[1].AnsweredCallID())
		assert.Equal(t, []core.SourceNote{{ID: "n1", Title: "Note"}}, msgs[2].SourceNotes)
		assert.Equal(t, "Ada", msgs[2].Persona)
	})

	t.Run("SetMode", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("chat", core.ModeConcurrent, "a1")
		require.NoError(t, s.Create(sess))

		require.NoError(t, s.SetMode(sess.ID, core.ModeModerated))
		got, err := s.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, core.ModeModerated, got.GetMode())

		assert.ErrorIs(t, s.SetMode("missing", core.ModeModerated), core.ErrSessionNotFound)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s := newStore(t)
		first := core.NewSession("one", core.ModeConcurrent, "a1")
		second := core.NewSession("two", core.ModeTurnBased, "a1")
		require.NoError(t, s.Create(first))
		require.NoError(t, s.Create(second))

		all, err := s.List()
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, s.Delete(first.ID))
		all, err = s.List()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, second.ID, all[0].ID)

		assert.ErrorIs(t, s.Delete(first.ID), core.ErrSessionNotFound)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("chat", core.ModeConcurrent, "a1", "a2")
		require.NoError(t, s.Create(sess))

		// Mirrors the concurrent strategy: several agents finishing turns
		// against the same session at once, mixing single appends and
		// batches. Every append must land, none may fail.
		const writers = 8
		const perWriter = 10
		var g errgroup.Group
		for w := 0; w < writers; w++ {
			w := w
			g.Go(func() error {
				for i := 0; i < perWriter; i += 2 {
					if err := s.AppendMessage(sess.ID, core.NewModelMessage("Agent", fmt.Sprintf("w%d-%d", w, i))); err != nil {
						return err
					}
					if err := s.AppendMessages(sess.ID, []core.Message{
						core.NewModelMessage("Agent", fmt.Sprintf("w%d-%d", w, i+1)),
					}); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		got, err := s.Get(sess.ID)
		require.NoError(t, err)
		msgs := got.Messages()
		require.Len(t, msgs, writers*perWriter)

		seen := make(map[string]bool, len(msgs))
		for _, msg := range msgs {
			assert.False(t, seen[msg.Content], "duplicate message %q", msg.Content)
			seen[msg.Content] = true
		}
	})

	t.Run("GetReturnsIsolatedCopy", func(t *testing.T) {
		s := newStore(t)
		sess := core.NewSession("chat", core.ModeConcurrent, "a1")
		require.NoError(t, s.Create(sess))
		require.NoError(t, s.AppendMessage(sess.ID, core.NewUserMessage("hello")))

		first, err := s.Get(sess.ID)
		require.NoError(t, err)
		first.AddMessage(core.NewUserMessage("local only"))

		second, err := s.Get(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, second.Len())
	})
}

func TestInMemoryStore(t *testing.T) {
	storeUnderTest(t, func(t *testing.T) core.SessionStore {
		return NewInMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	storeUnderTest(t, func(t *testing.T) core.SessionStore {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "parley.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
