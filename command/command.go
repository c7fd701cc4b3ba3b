// Package command implements the slash-command registry. Built-in commands
// are process-wide constants; custom commands are appended once and never
// mutated. The registry uses copy-on-write semantics so concurrent readers
// never observe a partially updated command set.
package command

import (
	"sort"
	"strings"
	"sync"

	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
)

// AlertFunc surfaces a user-visible alert, for example a toast in a UI shell
// or a line on stderr in a CLI.
type AlertFunc func(message string)

// Registry holds the command set keyed by name. Readers grab the current
// snapshot pointer and look up against an immutable map; Add publishes a new
// snapshot rather than mutating the old one.
type Registry struct {
	mu       sync.Mutex
	commands map[string]core.Command // immutable once published; replaced on write
	alert    AlertFunc
	logger   logging.Logger
}

// NewRegistry creates a registry pre-populated with the built-in commands.
// The alert function may be nil, in which case collisions are only logged.
func NewRegistry(logger logging.Logger, alert AlertFunc) *Registry {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	r := &Registry{
		commands: make(map[string]core.Command),
		alert:    alert,
		logger:   logger,
	}
	for _, cmd := range Builtins() {
		r.commands[cmd.Name] = cmd
	}
	return r
}

// Add registers a custom command. It returns false, leaves the registry
// unchanged and raises a user-visible alert when the name collides with an
// existing command. Collisions are reported synchronously, never as an error.
func (r *Registry) Add(cmd core.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		r.logger.Warn("command.registry.collision", "name", cmd.Name)
		if r.alert != nil {
			r.alert("A command named \"" + cmd.Name + "\" already exists.")
		}
		return false
	}

	next := make(map[string]core.Command, len(r.commands)+1)
	for name, existing := range r.commands {
		next[name] = existing
	}
	cmd.IsCustom = true
	next[cmd.Name] = cmd
	r.commands = next

	r.logger.Info("command.registry.added", "name", cmd.Name)
	return true
}

// Resolve looks up a command by name. An unknown name is not an error; the
// caller treats the input as plain text.
func (r *Registry) Resolve(name string) (core.Command, bool) {
	r.mu.Lock()
	snapshot := r.commands
	r.mu.Unlock()
	cmd, ok := snapshot[name]
	return cmd, ok
}

// All returns every registered command sorted by name.
func (r *Registry) All() []core.Command {
	r.mu.Lock()
	snapshot := r.commands
	r.mu.Unlock()
	all := make([]core.Command, 0, len(snapshot))
	for _, cmd := range snapshot {
		all = append(all, cmd)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// ParseInput splits raw input of the form "/name rest of text" into the
// command name and the remaining text. It returns ok=false when the input is
// not a slash command.
func ParseInput(raw string) (name, rest string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(trimmed, "/")
	if body == "" {
		return "", "", false
	}
	parts := strings.SplitN(body, " ", 2)
	name = parts[0]
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return name, rest, true
}

// Builtins returns the built-in command set.
func Builtins() []core.Command {
	return []core.Command{
		{
			Name:        "search",
			Params:      "query",
			Description: "Search the note corpus and ground the discussion in the results.",
			Definition:  "Use the search_notes tool with the user's query before answering. Base your answer on the notes found and cite them.",
		},
		{
			Name:        "note",
			Params:      "title",
			Description: "Capture the discussion so far as a new note.",
			Definition:  "Summarize the key points of the conversation and store them with the create_note tool, using the given title.",
		},
		{
			Name:        "summarize",
			Params:      "",
			Description: "Summarize the conversation so far.",
			Definition:  "Produce a concise summary of the discussion so far, highlighting decisions and open questions.",
		},
	}
}
