package chat

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/parleychat/parley/core"
)

// ConcurrentStrategy runs every responding agent in parallel against the same
// history snapshot. Messages produced by one agent this round are not visible
// to another agent's prompt; that simultaneity is deliberate.
type ConcurrentStrategy struct {
	runner *TurnRunner
	roster *core.Roster
}

var _ Strategy = (*ConcurrentStrategy)(nil)

// NewConcurrentStrategy creates the parallel fan-out strategy.
func NewConcurrentStrategy(runner *TurnRunner, roster *core.Roster) *ConcurrentStrategy {
	return &ConcurrentStrategy{runner: runner, roster: roster}
}

// Name implements Strategy.
func (s *ConcurrentStrategy) Name() string { return "concurrent" }

// HandleMessage implements Strategy. One agent's failure does not prevent the
// others from completing: all turns settle before the first error, if any, is
// returned.
func (s *ConcurrentStrategy) HandleMessage(ctx context.Context, session *core.Session, _ core.Message, mentioned []core.AgentProfile, cmd *core.Command) error {
	responding, err := respondingSet(session, s.roster, mentioned)
	if err != nil {
		return err
	}

	snapshot := session.Messages()
	names := participantNames(session, s.roster)

	// Plain Group rather than WithContext: a failing agent must not cancel
	// its siblings mid-turn.
	var g errgroup.Group
	for _, agent := range responding {
		g.Go(func() error {
			_, err := s.runner.RunTurn(ctx, session.ID, agent, snapshot, names, cmd)
			return err
		})
	}
	return g.Wait()
}
