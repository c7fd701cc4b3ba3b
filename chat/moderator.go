package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
	"github.com/parleychat/parley/provider"
)

// Moderator tool names, exposed to the model as the two possible decisions.
const (
	DecisionSelectNextSpeaker = "select_next_speaker"
	DecisionPassControlToUser = "pass_control_to_user"
)

// Decision is the moderator's structured verdict for one loop iteration.
type Decision struct {
	Tool      string `json:"tool"`
	AgentName string `json:"agent_name,omitempty"`
	Reason    string `json:"reason"`
}

// Moderator asks the provider, via constrained JSON generation, which agent
// should speak next or whether control should return to the user.
type Moderator struct {
	provider provider.Provider
	logger   *logging.ChatLogger
}

// NewModerator creates a moderator backed by the given provider.
func NewModerator(p provider.Provider, logger *logging.ChatLogger) *Moderator {
	if logger == nil {
		logger = logging.NewNoOpChatLogger()
	}
	return &Moderator{provider: p, logger: logger.WithComponent("moderator")}
}

func decisionSchema() *core.Schema {
	return &core.Schema{
		Type:        core.SchemaObject,
		Description: "The moderator's decision for the next discussion turn.",
		Properties: map[string]*core.Schema{
			"tool": {
				Type:        core.SchemaString,
				Description: "The action to take.",
				Enum:        []string{DecisionSelectNextSpeaker, DecisionPassControlToUser},
			},
			"agent_name": {
				Type:        core.SchemaString,
				Description: "The display name of the agent who should speak next. Required for select_next_speaker.",
			},
			"reason": {
				Type:        core.SchemaString,
				Description: "A short, user-visible explanation for the decision.",
			},
		},
		Required: []string{"tool", "reason"},
	}
}

func (m *Decision) validate() error {
	switch m.Tool {
	case DecisionSelectNextSpeaker:
		if m.AgentName == "" {
			return fmt.Errorf("select_next_speaker decision without agent_name")
		}
	case DecisionPassControlToUser:
	default:
		return fmt.Errorf("unknown moderator tool %q", m.Tool)
	}
	return nil
}

// Decide asks the provider for the next moderation decision.
func (m *Moderator) Decide(ctx context.Context, history []core.Message, participants, spoken, mentioned []string) (*Decision, error) {
	prompt := buildModeratorPrompt(history, participants, spoken, mentioned)

	var decision Decision
	err := m.provider.GenerateJSON(ctx, prompt, decisionSchema(), &decision, func(o *provider.Options) {
		o.SchemaName = "moderator_decision"
	})
	if err != nil {
		return nil, fmt.Errorf("moderator decision: %w", err)
	}
	if err := decision.validate(); err != nil {
		return nil, err
	}

	m.logger.Debug("chat.moderator.decision", "tool", decision.Tool, "agent", decision.AgentName)

	return &decision, nil
}

// buildModeratorPrompt renders the discussion state for the moderator.
// Orchestration announcements are filtered out of the transcript.
func buildModeratorPrompt(history []core.Message, participants, spoken, mentioned []string) string {
	var sb strings.Builder
	sb.WriteString("You moderate a group discussion between a user and several AI participants.\n")
	sb.WriteString("Decide who should speak next, or whether the discussion should return to the user.\n")
	sb.WriteString("Prefer participants who have not spoken yet and honor explicit mentions. Pass control back once the user's request has been addressed.\n\n")

	fmt.Fprintf(&sb, "Participants: %s\n", strings.Join(participants, ", "))
	if len(spoken) > 0 {
		fmt.Fprintf(&sb, "Already spoke this round: %s\n", strings.Join(spoken, ", "))
	}
	if len(mentioned) > 0 {
		fmt.Fprintf(&sb, "Mentioned by the user: %s\n", strings.Join(mentioned, ", "))
	}

	sb.WriteString("\nTranscript:\n")
	for _, msg := range history {
		if msg.Role == core.RoleSystem || !msg.IsFinal() {
			continue
		}
		speaker := "User"
		switch msg.Role {
		case core.RoleModel:
			if msg.Persona != "" {
				speaker = msg.Persona
			} else {
				speaker = "Assistant"
			}
		case core.RoleTool:
			continue
		}
		if msg.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
	}

	return sb.String()
}
