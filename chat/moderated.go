package chat

import (
	"context"
	"fmt"
	"sort"

	"github.com/parleychat/parley/core"
)

// moderatorExtraTurns pads the moderated loop bound beyond the participant
// count, leaving room for follow-ups without risking an unbounded loop.
const moderatorExtraTurns = 3

// ModeratedStrategy lets a moderator pick speakers one at a time. The loop is
// hard-bounded at participantCount + moderatorExtraTurns iterations as a
// safety valve against a moderator that never yields control.
type ModeratedStrategy struct {
	runner    *TurnRunner
	roster    *core.Roster
	store     core.SessionStore
	moderator *Moderator
}

var _ Strategy = (*ModeratedStrategy)(nil)

// NewModeratedStrategy creates the moderator-driven strategy.
func NewModeratedStrategy(runner *TurnRunner, roster *core.Roster, store core.SessionStore, moderator *Moderator) *ModeratedStrategy {
	return &ModeratedStrategy{runner: runner, roster: roster, store: store, moderator: moderator}
}

// Name implements Strategy.
func (s *ModeratedStrategy) Name() string { return "moderated" }

// HandleMessage implements Strategy.
func (s *ModeratedStrategy) HandleMessage(ctx context.Context, session *core.Session, _ core.Message, mentioned []core.AgentProfile, cmd *core.Command) error {
	participants, err := s.roster.Resolve(session.Participants())
	if err != nil {
		return err
	}

	names := make([]string, len(participants))
	byName := make(map[string]core.AgentProfile, len(participants))
	for i, p := range participants {
		names[i] = p.Name
		byName[p.Name] = p
	}
	mentionedNames := make([]string, len(mentioned))
	for i, m := range mentioned {
		mentionedNames[i] = m.Name
	}

	turnHistory := session.Messages()
	spoken := make(map[string]struct{})
	firstTurn := true

	maxTurns := len(participants) + moderatorExtraTurns
	for i := 0; i < maxTurns; i++ {
		decision, err := s.moderator.Decide(ctx, turnHistory, names, sortedKeys(spoken), mentionedNames)
		if err != nil {
			// The moderator is itself provider-backed, so its failure gets the
			// same treatment as a failed agent turn: a visible message plus a
			// typed error the manager swallows.
			notice := core.NewSystemMessage("Moderator: unable to continue the discussion; passing control back to you.")
			if appendErr := s.store.AppendMessage(session.ID, notice); appendErr != nil {
				return appendErr
			}
			return &TurnError{SessionID: session.ID, AgentName: "Moderator", Err: err}
		}

		if decision.Tool == DecisionPassControlToUser {
			handback := core.NewSystemMessage(fmt.Sprintf("Moderator: passing control back to you. %s", decision.Reason))
			if err := s.store.AppendMessage(session.ID, handback); err != nil {
				return err
			}
			return nil
		}

		agent, ok := byName[decision.AgentName]
		if !ok {
			// Recoverable: skip this round, the iteration still counts so a
			// misbehaving moderator cannot retry forever.
			s.runner.logger.Warn("chat.moderator.invalid_selection", "agent", decision.AgentName, "session_id", session.ID)
			continue
		}

		announcement := core.NewSystemMessage(fmt.Sprintf("Moderator: %s speaks next. %s", agent.Name, decision.Reason))
		if err := s.store.AppendMessage(session.ID, announcement); err != nil {
			return err
		}
		turnHistory = append(turnHistory, announcement)

		var turnCmd *core.Command
		if firstTurn {
			turnCmd = cmd
			firstTurn = false
		}
		produced, err := s.runner.RunTurn(ctx, session.ID, agent, turnHistory, names, turnCmd)
		if err != nil {
			return err
		}
		turnHistory = append(turnHistory, produced...)
		spoken[agent.Name] = struct{}{}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	// Stable order keeps moderator prompts deterministic.
	sort.Strings(keys)
	return keys
}
