package chat

import (
	"context"

	"github.com/parleychat/parley/core"
)

// TurnBasedStrategy runs the responding agents sequentially. Each agent sees
// the messages its predecessors produced this round. When one agent's turn
// fails the remaining agents do not get a turn.
type TurnBasedStrategy struct {
	runner *TurnRunner
	roster *core.Roster
}

var _ Strategy = (*TurnBasedStrategy)(nil)

// NewTurnBasedStrategy creates the sequential strategy.
func NewTurnBasedStrategy(runner *TurnRunner, roster *core.Roster) *TurnBasedStrategy {
	return &TurnBasedStrategy{runner: runner, roster: roster}
}

// Name implements Strategy.
func (s *TurnBasedStrategy) Name() string { return "turn_based" }

// HandleMessage implements Strategy.
func (s *TurnBasedStrategy) HandleMessage(ctx context.Context, session *core.Session, _ core.Message, mentioned []core.AgentProfile, cmd *core.Command) error {
	responding, err := respondingSet(session, s.roster, mentioned)
	if err != nil {
		return err
	}

	turnHistory := session.Messages()
	names := participantNames(session, s.roster)

	for i, agent := range responding {
		// The resolved command seeds only the first agent's instructions.
		var turnCmd *core.Command
		if i == 0 {
			turnCmd = cmd
		}
		produced, err := s.runner.RunTurn(ctx, session.ID, agent, turnHistory, names, turnCmd)
		if err != nil {
			return err
		}
		turnHistory = append(turnHistory, produced...)
	}
	return nil
}
