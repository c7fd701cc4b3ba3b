package chat

import (
	"strings"

	"github.com/parleychat/parley/core"
)

// ParseMentions extracts @Name mentions from user input. A mention is a
// whitespace-delimited word starting with '@' whose remainder, after trailing
// punctuation is stripped, exactly matches a participant's display name.
// Duplicate mentions are collapsed; order follows first occurrence.
func ParseMentions(text string, participants []core.AgentProfile) []core.AgentProfile {
	byName := make(map[string]core.AgentProfile, len(participants))
	for _, p := range participants {
		byName[p.Name] = p
	}

	var mentioned []core.AgentProfile
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		if !strings.HasPrefix(word, "@") {
			continue
		}
		name := strings.TrimRight(strings.TrimPrefix(word, "@"), ".,:;!?")
		agent, ok := byName[name]
		if !ok {
			continue
		}
		if _, dup := seen[agent.ID]; dup {
			continue
		}
		seen[agent.ID] = struct{}{}
		mentioned = append(mentioned, agent)
	}
	return mentioned
}

// FilterMentionCandidates returns participants whose display name contains
// the partial input, compared case-insensitively. It backs mention
// autocompletion and is deliberately looser than ParseMentions.
func FilterMentionCandidates(partial string, participants []core.AgentProfile) []core.AgentProfile {
	needle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(partial), "@"))
	if needle == "" {
		return append([]core.AgentProfile(nil), participants...)
	}
	var out []core.AgentProfile
	for _, p := range participants {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}
