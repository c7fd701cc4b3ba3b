package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
	"github.com/parleychat/parley/provider"
	"github.com/parleychat/parley/tool"
)

const (
	// ApologyText is the fixed user-visible message appended when a turn
	// fails for any reason.
	ApologyText = "Sorry, I ran into a problem and could not finish my response."

	// EmptyResponseText is the fixed placeholder used when the provider
	// returns final text that trims to empty.
	EmptyResponseText = "(no response)"

	// maxToolRounds bounds the provider/tool loop. The loop would otherwise
	// run forever against a provider that keeps requesting tools.
	maxToolRounds = 10
)

// ErrToolRoundsExceeded signals that an agent kept requesting tools past the
// allowed number of rounds.
var ErrToolRoundsExceeded = errors.New("tool loop exceeded maximum rounds")

// TurnError is returned by the runner after a failed turn. The apology
// message has already been appended to the session by the time callers see
// it; strategies use the error only to decide whether to continue their
// dispatch sequence.
type TurnError struct {
	SessionID string
	AgentName string
	Err       error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed for agent %q in session %s: %v", e.AgentName, e.SessionID, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// turnState models the runner's loop as an explicit finite-state machine.
type turnState string

const (
	stateAwaitingProvider turnState = "awaiting_provider"
	stateExecutingTools   turnState = "executing_tools"
	stateDone             turnState = "done"
	stateError            turnState = "error"
)

// TurnRunner executes a single agent's turn: it calls the provider with the
// agent persona and a history snapshot, executes any requested tool calls in
// concurrent batches, and appends the produced messages to the session store.
type TurnRunner struct {
	provider provider.Provider
	executor *tool.Executor
	store    core.SessionStore
	logger   *logging.ChatLogger
	timeout  time.Duration
	model    string
}

// TurnRunnerOptions configures a TurnRunner.
type TurnRunnerOptions struct {
	// Timeout bounds each provider call. Zero disables the bound.
	Timeout time.Duration
	// Model overrides the provider default model for every call.
	Model string
}

// NewTurnRunner wires a runner to its collaborators.
func NewTurnRunner(p provider.Provider, executor *tool.Executor, store core.SessionStore, logger *logging.ChatLogger, optFns ...func(o *TurnRunnerOptions)) *TurnRunner {
	opts := TurnRunnerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if logger == nil {
		logger = logging.NewNoOpChatLogger()
	}
	return &TurnRunner{
		provider: p,
		executor: executor,
		store:    store,
		logger:   logger,
		timeout:  opts.Timeout,
		model:    opts.Model,
	}
}

// RunTurn produces zero or more messages for one agent and appends them to
// the session. It returns the appended messages so strategies can thread them
// into their local view of the turn.
//
// Any provider or tool failure is converted into a fixed apology message
// appended to the session, and a *TurnError is returned so sequential
// strategies can stop their dispatch sequence.
func (r *TurnRunner) RunTurn(ctx context.Context, sessionID string, agent core.AgentProfile, history []core.Message, participantNames []string, cmd *core.Command) ([]core.Message, error) {
	logger := r.logger.WithSession(sessionID)
	start := time.Now()

	toolCtx := tool.NewContext(sessionID, logger)
	msgs := filterForProvider(history)
	instructions := buildInstructions(agent, participantNames, cmd)

	var (
		appended []core.Message
		resp     *provider.Response
		runErr   error
	)

	round := 1
	state := stateAwaitingProvider
	for state != stateDone && state != stateError {
		switch state {
		case stateAwaitingProvider:
			if round > maxToolRounds {
				runErr = ErrToolRoundsExceeded
				state = stateError
				continue
			}
			resp, runErr = r.provider.Generate(ctx, provider.Request{
				Instructions: instructions,
				Messages:     msgs,
				Tools:        r.executor.Definitions(),
			}, r.callOptions)
			if runErr != nil {
				state = stateError
				continue
			}
			if resp.HasToolCalls() {
				state = stateExecutingTools
			} else {
				state = stateDone
			}

		case stateExecutingTools:
			callMsg := core.NewToolCallMessage(agent.Name, resp.ToolCalls)
			if runErr = r.store.AppendMessage(sessionID, callMsg); runErr != nil {
				state = stateError
				continue
			}
			appended = append(appended, callMsg)
			msgs = append(msgs, callMsg)

			results, err := r.executor.ExecuteBatch(ctx, toolCtx, resp.ToolCalls)
			if err != nil {
				runErr = err
				state = stateError
				continue
			}
			// All results of one round land as a single atomic batch.
			if runErr = r.store.AppendMessages(sessionID, results); runErr != nil {
				state = stateError
				continue
			}
			appended = append(appended, results...)
			msgs = append(msgs, results...)

			round++
			state = stateAwaitingProvider
		}
	}

	if state == stateError {
		logger.LogAgentTurn(agent.Name, round-1, time.Since(start), false, runErr)
		apology := core.NewModelMessage(agent.Name, ApologyText)
		if err := r.store.AppendMessage(sessionID, apology); err != nil {
			logger.Error("chat.turn.apology_append_failed", "agent", agent.Name, "error", err.Error())
		} else {
			appended = append(appended, apology)
		}
		return appended, &TurnError{SessionID: sessionID, AgentName: agent.Name, Err: runErr}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = EmptyResponseText
	}
	final := core.NewModelMessage(agent.Name, text)
	if sources := toolCtx.SourceNotes(); len(sources) > 0 {
		final.SourceNotes = sources
	}
	if err := r.store.AppendMessage(sessionID, final); err != nil {
		return appended, &TurnError{SessionID: sessionID, AgentName: agent.Name, Err: err}
	}
	appended = append(appended, final)

	logger.LogAgentTurn(agent.Name, round-1, time.Since(start), true, nil)

	return appended, nil
}

func (r *TurnRunner) callOptions(o *provider.Options) {
	if r.timeout > 0 {
		o.Timeout = r.timeout
	}
	if r.model != "" {
		o.Model = r.model
	}
}

// filterForProvider drops orchestration announcements and unsettled messages
// from the history snapshot sent to the model.
func filterForProvider(history []core.Message) []core.Message {
	out := make([]core.Message, 0, len(history))
	for _, m := range history {
		if m.Role == core.RoleSystem || !m.IsFinal() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// buildInstructions assembles the per-turn system instruction: the agent
// persona, the participant roster, and the active command directive when one
// was resolved for this user turn.
func buildInstructions(agent core.AgentProfile, participantNames []string, cmd *core.Command) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, one participant in a group discussion.", agent.Name)
	if agent.SystemInstruction != "" {
		sb.WriteString("\n\n")
		sb.WriteString(agent.SystemInstruction)
	}
	others := make([]string, 0, len(participantNames))
	for _, name := range participantNames {
		if name != agent.Name {
			others = append(others, name)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(&sb, "\n\nOther participants: %s.", strings.Join(others, ", "))
	}
	if cmd != nil && cmd.Definition != "" {
		fmt.Fprintf(&sb, "\n\nDirective for this turn:\n%s", cmd.Definition)
	}
	return sb.String()
}
