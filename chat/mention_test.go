package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/core"
)

func profiles(names ...string) []core.AgentProfile {
	out := make([]core.AgentProfile, len(names))
	for i, n := range names {
		out[i] = core.AgentProfile{ID: "id-" + n, Name: n}
	}
	return out
}

func TestParseMentionsWholeWord(t *testing.T) {
	parts := profiles("Ada", "Grace")

	got := ParseMentions("@Ada what do you think?", parts)
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Name)

	// Substrings are not mentions for the exact parser.
	got = ParseMentions("@Adamant thoughts?", parts)
	assert.Empty(t, got)

	// Mentions can appear anywhere and trailing punctuation is ignored.
	got = ParseMentions("summarize this, @Grace, please", parts)
	require.Len(t, got, 1)
	assert.Equal(t, "Grace", got[0].Name)
}

func TestParseMentionsCaseSensitive(t *testing.T) {
	got := ParseMentions("@ada hello", profiles("Ada"))
	assert.Empty(t, got)
}

func TestParseMentionsDedupe(t *testing.T) {
	got := ParseMentions("@Ada and again @Ada", profiles("Ada", "Grace"))
	assert.Len(t, got, 1)
}

func TestParseMentionsOrder(t *testing.T) {
	got := ParseMentions("@Grace then @Ada", profiles("Ada", "Grace"))
	require.Len(t, got, 2)
	assert.Equal(t, "Grace", got[0].Name)
	assert.Equal(t, "Ada", got[1].Name)
}

func TestFilterMentionCandidates(t *testing.T) {
	parts := profiles("Ada", "Adamant", "Grace")

	got := FilterMentionCandidates("@ada", parts)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, "Adamant", got[1].Name)

	got = FilterMentionCandidates("RACE", parts)
	require.Len(t, got, 1)
	assert.Equal(t, "Grace", got[0].Name)

	got = FilterMentionCandidates("", parts)
	assert.Len(t, got, 3)
}
