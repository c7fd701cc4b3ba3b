package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/notes"
	"github.com/parleychat/parley/provider"
	"github.com/parleychat/parley/store"
	"github.com/parleychat/parley/tool"
)

type strategyEnv struct {
	prov   *provider.Mock
	store  *store.InMemoryStore
	roster *core.Roster
	runner *TurnRunner
	sess   *core.Session
}

func newStrategyEnv(t *testing.T, mode core.DiscussionMode, agents ...core.AgentProfile) *strategyEnv {
	t.Helper()
	prov := provider.NewMock()
	st := store.NewInMemoryStore()
	nm := notes.NewInMemoryManager()
	exec := tool.NewExecutor(nil, tool.NewSearchNotesTool(nm), tool.NewCreateNoteTool(nm))
	runner := NewTurnRunner(prov, exec, st, nil)
	roster := core.NewRoster(agents...)

	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	sess := core.NewSession("test", mode, ids...)
	require.NoError(t, st.Create(sess))
	require.NoError(t, st.AppendMessage(sess.ID, core.NewUserMessage("hello everyone")))

	return &strategyEnv{prov: prov, store: st, roster: roster, runner: runner, sess: sess}
}

func (e *strategyEnv) snapshot(t *testing.T) *core.Session {
	t.Helper()
	sess, err := e.store.Get(e.sess.ID)
	require.NoError(t, err)
	return sess
}

func (e *strategyEnv) userMsg(t *testing.T) core.Message {
	t.Helper()
	return e.snapshot(t).Messages()[0]
}

func agentList(names ...string) []core.AgentProfile {
	out := make([]core.AgentProfile, len(names))
	for i, n := range names {
		out[i] = core.AgentProfile{ID: "id-" + n, Name: n}
	}
	return out
}

func TestForModeTotalMapping(t *testing.T) {
	env := newStrategyEnv(t, core.ModeConcurrent, agentList("Ada")...)
	moderator := NewModerator(env.prov, nil)

	assert.Equal(t, "concurrent", ForMode(core.ModeConcurrent, env.runner, env.roster, env.store, moderator).Name())
	assert.Equal(t, "turn_based", ForMode(core.ModeTurnBased, env.runner, env.roster, env.store, moderator).Name())
	assert.Equal(t, "moderated", ForMode(core.ModeModerated, env.runner, env.roster, env.store, moderator).Name())
	// Unrecognized modes still map to a usable strategy.
	assert.Equal(t, "concurrent", ForMode(core.DiscussionMode("bogus"), env.runner, env.roster, env.store, moderator).Name())
}

func TestConcurrentIdenticalSnapshots(t *testing.T) {
	agents := agentList("Ada", "Grace", "Alan")
	env := newStrategyEnv(t, core.ModeConcurrent, agents...)
	strategy := NewConcurrentStrategy(env.runner, env.roster)

	for range agents {
		env.prov.QueueResponse(&provider.Response{Text: "reply"})
	}

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	require.NoError(t, err)

	// Every agent's provider request saw the same history snapshot: none of
	// them observed another agent's answer from this round.
	reqs := env.prov.Requests()
	require.Len(t, reqs, 3)
	for _, req := range reqs {
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello everyone", req.Messages[0].Content)
	}

	history := env.snapshot(t).Messages()
	require.Len(t, history, 4)
	personas := map[string]bool{}
	for _, msg := range history[1:] {
		personas[msg.Persona] = true
	}
	assert.Len(t, personas, 3)
}

func TestConcurrentMentionedSubset(t *testing.T) {
	agents := agentList("Ada", "Grace", "Alan")
	env := newStrategyEnv(t, core.ModeConcurrent, agents...)
	strategy := NewConcurrentStrategy(env.runner, env.roster)
	env.prov.QueueResponse(&provider.Response{Text: "just me"})

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), agents[1:2], nil)
	require.NoError(t, err)

	history := env.snapshot(t).Messages()
	require.Len(t, history, 2)
	assert.Equal(t, "Grace", history[1].Persona)
}

func TestConcurrentOneFailureDoesNotBlockOthers(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeConcurrent, agents...)
	strategy := NewConcurrentStrategy(env.runner, env.roster)

	var mu sync.Mutex
	calls := 0
	env.prov.GenerateFn = func(context.Context, provider.Request) (*provider.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("first one fails")
		}
		return &provider.Response{Text: "survived"}, nil
	}

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)

	// Both agents settled: one apology, one real answer.
	history := env.snapshot(t).Messages()
	require.Len(t, history, 3)
	contents := []string{history[1].Content, history[2].Content}
	assert.Contains(t, contents, ApologyText)
	assert.Contains(t, contents, "survived")
}

func TestTurnBasedSequentialVisibility(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeTurnBased, agents...)
	strategy := NewTurnBasedStrategy(env.runner, env.roster)

	env.prov.QueueResponse(&provider.Response{Text: "first answer"})
	env.prov.QueueResponse(&provider.Response{Text: "second answer"})

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	require.NoError(t, err)

	reqs := env.prov.Requests()
	require.Len(t, reqs, 2)
	// The second agent sees the first agent's answer in its snapshot.
	require.Len(t, reqs[0].Messages, 1)
	require.Len(t, reqs[1].Messages, 2)
	assert.Equal(t, "first answer", reqs[1].Messages[1].Content)

	history := env.snapshot(t).Messages()
	require.Len(t, history, 3)
	assert.Equal(t, "Ada", history[1].Persona)
	assert.Equal(t, "Grace", history[2].Persona)
}

func TestTurnBasedStopsOnError(t *testing.T) {
	agents := agentList("Ada", "Grace", "Alan")
	env := newStrategyEnv(t, core.ModeTurnBased, agents...)
	strategy := NewTurnBasedStrategy(env.runner, env.roster)

	var mu sync.Mutex
	calls := 0
	env.prov.GenerateFn = func(context.Context, provider.Request) (*provider.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return nil, errors.New("second agent fails")
		}
		return &provider.Response{Text: "fine"}, nil
	}

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, "Grace", turnErr.AgentName)

	// The third agent never got a turn.
	assert.Equal(t, 2, calls)
	history := env.snapshot(t).Messages()
	require.Len(t, history, 3)
	assert.Equal(t, ApologyText, history[2].Content)
}

func TestTurnBasedCommandOnlyFirstAgent(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeTurnBased, agents...)
	strategy := NewTurnBasedStrategy(env.runner, env.roster)

	env.prov.QueueResponse(&provider.Response{Text: "one"})
	env.prov.QueueResponse(&provider.Response{Text: "two"})

	cmd := &core.Command{Name: "search", Definition: "Search the corpus first."}
	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, cmd)
	require.NoError(t, err)

	reqs := env.prov.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0].Instructions, "Search the corpus first.")
	assert.NotContains(t, reqs[1].Instructions, "Search the corpus first.")
}

// scriptModerator wires a deterministic decision sequence into the mock
// provider's JSON hook. The last decision repeats once the script runs out.
func scriptModerator(prov *provider.Mock, script ...Decision) *int {
	var mu sync.Mutex
	calls := 0
	prov.JSONFn = func(_ context.Context, _ string, _ *core.Schema, out any) error {
		mu.Lock()
		defer mu.Unlock()
		idx := calls
		if idx >= len(script) {
			idx = len(script) - 1
		}
		calls++
		*(out.(*Decision)) = script[idx]
		return nil
	}
	return &calls
}

func TestModeratedSelectThenHandback(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeModerated, agents...)
	moderator := NewModerator(env.prov, nil)
	strategy := NewModeratedStrategy(env.runner, env.roster, env.store, moderator)

	scriptModerator(env.prov,
		Decision{Tool: DecisionSelectNextSpeaker, AgentName: "Grace", Reason: "Grace has relevant context."},
		Decision{Tool: DecisionSelectNextSpeaker, AgentName: "Ada", Reason: "Ada should weigh in."},
		Decision{Tool: DecisionPassControlToUser, Reason: "Both sides are covered."},
	)
	env.prov.QueueResponse(&provider.Response{Text: "Grace's take"})
	env.prov.QueueResponse(&provider.Response{Text: "Ada's take"})

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	require.NoError(t, err)

	history := env.snapshot(t).Messages()
	require.Len(t, history, 6)

	assert.Equal(t, core.RoleSystem, history[1].Role)
	assert.Contains(t, history[1].Content, "Grace")
	assert.Contains(t, history[1].Content, "Grace has relevant context.")
	assert.Equal(t, "Grace's take", history[2].Content)

	assert.Equal(t, core.RoleSystem, history[3].Role)
	assert.Equal(t, "Ada's take", history[4].Content)

	// The hand-back quotes the moderator's reason.
	assert.Equal(t, core.RoleSystem, history[5].Role)
	assert.Contains(t, history[5].Content, "Both sides are covered.")
}

func TestModeratedInvalidSelectionTerminates(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeModerated, agents...)
	moderator := NewModerator(env.prov, nil)
	strategy := NewModeratedStrategy(env.runner, env.roster, env.store, moderator)

	calls := scriptModerator(env.prov,
		Decision{Tool: DecisionSelectNextSpeaker, AgentName: "Nobody", Reason: "confused"},
	)

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	require.NoError(t, err)

	// The loop runs exactly participantCount+3 iterations, then exits
	// without ever dispatching an agent turn.
	assert.Equal(t, len(agents)+moderatorExtraTurns, *calls)
	history := env.snapshot(t).Messages()
	assert.Len(t, history, 1)
}

func TestModeratedDecisionFailureAppendsNotice(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeModerated, agents...)
	moderator := NewModerator(env.prov, nil)
	strategy := NewModeratedStrategy(env.runner, env.roster, env.store, moderator)

	env.prov.JSONFn = func(context.Context, string, *core.Schema, any) error {
		return errors.New("provider down")
	}

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, "Moderator", turnErr.AgentName)

	// The failure stays user-visible as a chat message, like a failed agent
	// turn.
	history := env.snapshot(t).Messages()
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleSystem, history[1].Role)
	assert.Contains(t, history[1].Content, "passing control back to you")
}

func TestModeratedStopsAfterTurnError(t *testing.T) {
	agents := agentList("Ada", "Grace")
	env := newStrategyEnv(t, core.ModeModerated, agents...)
	moderator := NewModerator(env.prov, nil)
	strategy := NewModeratedStrategy(env.runner, env.roster, env.store, moderator)

	scriptModerator(env.prov,
		Decision{Tool: DecisionSelectNextSpeaker, AgentName: "Ada", Reason: "start with Ada"},
	)
	env.prov.GenerateFn = func(context.Context, provider.Request) (*provider.Response, error) {
		return nil, errors.New("provider down")
	}

	err := strategy.HandleMessage(context.Background(), env.snapshot(t), env.userMsg(t), nil, nil)
	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)

	history := env.snapshot(t).Messages()
	require.Len(t, history, 3)
	assert.Equal(t, core.RoleSystem, history[1].Role)
	assert.Equal(t, ApologyText, history[2].Content)
}
