package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/core"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(nil, nil)

	cmd, ok := r.Resolve("search")
	require.True(t, ok)
	assert.Equal(t, "search", cmd.Name)
	assert.False(t, cmd.IsCustom)

	_, ok = r.Resolve("definitely-not-a-command")
	assert.False(t, ok)
}

func TestRegistryAddCustom(t *testing.T) {
	r := NewRegistry(nil, nil)

	ok := r.Add(core.Command{
		Name:       "standup",
		Definition: "Run a standup round asking each participant for status.",
	})
	require.True(t, ok)

	cmd, found := r.Resolve("standup")
	require.True(t, found)
	assert.True(t, cmd.IsCustom)
}

func TestRegistryCollisionReturnsFalseAndAlerts(t *testing.T) {
	var alerts []string
	r := NewRegistry(nil, func(msg string) { alerts = append(alerts, msg) })

	before := len(r.All())

	// "search" is a builtin; re-creating it must fail without mutation.
	ok := r.Add(core.Command{Name: "search", Definition: "shadowed"})
	assert.False(t, ok)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "search")

	assert.Len(t, r.All(), before)
	cmd, _ := r.Resolve("search")
	assert.NotEqual(t, "shadowed", cmd.Definition)
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry(nil, nil)
	require.True(t, r.Add(core.Command{Name: "aaa"}))

	all := r.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestParseInput(t *testing.T) {
	name, rest, ok := ParseInput("/search release plans")
	require.True(t, ok)
	assert.Equal(t, "search", name)
	assert.Equal(t, "release plans", rest)

	name, rest, ok = ParseInput("  /note  ")
	require.True(t, ok)
	assert.Equal(t, "note", name)
	assert.Equal(t, "", rest)

	_, _, ok = ParseInput("plain text")
	assert.False(t, ok)

	_, _, ok = ParseInput("/")
	assert.False(t, ok)
}
