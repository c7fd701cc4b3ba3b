package chat

import (
	"context"

	"github.com/parleychat/parley/core"
)

// Strategy decides which agents respond to a user message and in which
// order. HandleMessage returns only after all agent activity it initiated for
// this user turn has settled or errored. Strategies mutate history through
// the turn runner and the session store only.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// HandleMessage dispatches agent turns for one user message. The session
	// is a snapshot taken after the user message was appended; mentioned
	// holds the agents the user addressed directly and cmd the slash command
	// resolved for this turn, if any.
	HandleMessage(ctx context.Context, session *core.Session, userMsg core.Message, mentioned []core.AgentProfile, cmd *core.Command) error
}

// ForMode maps a discussion mode to its strategy. The mapping is total: every
// valid mode has exactly one strategy, and an unrecognized mode falls back to
// concurrent dispatch.
func ForMode(mode core.DiscussionMode, runner *TurnRunner, roster *core.Roster, store core.SessionStore, moderator *Moderator) Strategy {
	switch mode {
	case core.ModeTurnBased:
		return NewTurnBasedStrategy(runner, roster)
	case core.ModeModerated:
		return NewModeratedStrategy(runner, roster, store, moderator)
	default:
		return NewConcurrentStrategy(runner, roster)
	}
}

// respondingSet resolves which agents answer this round: the mentioned agents
// when the user addressed anyone directly, otherwise every participant.
func respondingSet(session *core.Session, roster *core.Roster, mentioned []core.AgentProfile) ([]core.AgentProfile, error) {
	if len(mentioned) > 0 {
		return mentioned, nil
	}
	return roster.Resolve(session.Participants())
}

// participantNames resolves the display names of all session participants,
// falling back to raw ids for dangling references.
func participantNames(session *core.Session, roster *core.Roster) []string {
	names := make([]string, 0, len(session.Participants()))
	for _, id := range session.Participants() {
		if agent, ok := roster.Get(id); ok {
			names = append(names, agent.Name)
			continue
		}
		names = append(names, id)
	}
	return names
}
