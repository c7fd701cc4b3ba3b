// Package parley provides a high-level façade over the orchestration core
// (sessions, strategies, tools, providers and logging) enabling rapid
// construction of multi-agent discussion systems. Most applications interact
// with this package by:
//  1. Creating a Parley via New() (optionally overriding default in-memory services)
//  2. Registering agent profiles and custom slash commands
//  3. Creating sessions and sending user messages with SendMessage
//
// The façade delegates orchestration to chat.Manager while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply the SQLite store, a real
// provider and a structured logger.
package parley

import (
	"context"
	"time"

	"github.com/parleychat/parley/chat"
	"github.com/parleychat/parley/command"
	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
	"github.com/parleychat/parley/notes"
	"github.com/parleychat/parley/provider"
	"github.com/parleychat/parley/provider/anthropic"
	"github.com/parleychat/parley/provider/openai"
	"github.com/parleychat/parley/store"
	"github.com/parleychat/parley/tool"
)

// Options configures the Parley instance.
type Options struct {
	// Provider generates agent responses and moderator decisions. Defaults
	// to a backend selected by ProviderName.
	Provider provider.Provider

	// ProviderName picks the default backend ("openai" or "anthropic") when
	// Provider is nil. An empty name selects openai.
	ProviderName string

	// Model overrides the provider's default model for every call.
	Model string

	// ProviderTimeout bounds each provider call. Zero disables the bound.
	ProviderTimeout time.Duration

	// SessionStore persists sessions (defaults to in-memory).
	SessionStore core.SessionStore

	// NotesManager backs the search_notes and create_note tools (defaults to
	// in-memory).
	NotesManager notes.Manager

	// Alert surfaces user-visible warnings such as command name collisions.
	Alert command.AlertFunc

	// Logger used by all components (defaults to a no-op logger).
	Logger *logging.ChatLogger

	// ExtraTools are registered with the executor in addition to the
	// built-in note tools.
	ExtraTools []tool.Tool
}

// Parley is the high-level façade aggregating the orchestration core and its
// services.
type Parley struct {
	opts     Options
	manager  *chat.Manager
	roster   *core.Roster
	commands *command.Registry
	executor *tool.Executor
}

// New creates a new Parley instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Parley {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionStore == nil {
		opts.SessionStore = store.NewInMemoryStore()
	}
	if opts.NotesManager == nil {
		opts.NotesManager = notes.NewInMemoryManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpChatLogger()
	}
	if opts.Provider == nil {
		opts.Provider = defaultProvider(opts.ProviderName)
	}

	roster := core.NewRoster()
	commands := command.NewRegistry(opts.Logger.WithComponent("commands"), opts.Alert)

	toolSet := append([]tool.Tool{
		tool.NewSearchNotesTool(opts.NotesManager),
		tool.NewCreateNoteTool(opts.NotesManager),
	}, opts.ExtraTools...)
	executor := tool.NewExecutor(opts.Logger.WithComponent("tools"), toolSet...)

	runner := chat.NewTurnRunner(opts.Provider, executor, opts.SessionStore, opts.Logger.WithComponent("runner"), func(o *chat.TurnRunnerOptions) {
		o.Timeout = opts.ProviderTimeout
		o.Model = opts.Model
	})
	moderator := chat.NewModerator(opts.Provider, opts.Logger)
	manager := chat.NewManager(opts.SessionStore, roster, commands, runner, moderator, opts.Logger)

	return &Parley{
		opts:     opts,
		manager:  manager,
		roster:   roster,
		commands: commands,
		executor: executor,
	}
}

func defaultProvider(name string) provider.Provider {
	if name == "anthropic" {
		return anthropic.New()
	}
	return openai.New()
}

// RegisterAgent adds an agent profile to the roster.
func (p *Parley) RegisterAgent(a core.AgentProfile) { p.roster.Add(a) }

// Agents lists every registered agent profile.
func (p *Parley) Agents() []core.AgentProfile { return p.roster.All() }

// CreateSession starts a new discussion session.
func (p *Parley) CreateSession(name string, mode core.DiscussionMode, participantIDs ...string) (*core.Session, error) {
	return p.manager.CreateSession(name, mode, participantIDs...)
}

// SendMessage processes one user input; see chat.Manager.SendMessage.
func (p *Parley) SendMessage(ctx context.Context, sessionID, text string) error {
	return p.manager.SendMessage(ctx, sessionID, text)
}

// Session returns a snapshot of the session, including its history.
func (p *Parley) Session(id string) (*core.Session, error) {
	return p.manager.GetSession(id)
}

// Sessions lists all sessions.
func (p *Parley) Sessions() ([]*core.Session, error) {
	return p.manager.Sessions()
}

// DeleteSession removes a session permanently.
func (p *Parley) DeleteSession(id string) error {
	return p.manager.DeleteSession(id)
}

// SetSessionMode switches the strategy used for the session's next message.
func (p *Parley) SetSessionMode(sessionID string, mode core.DiscussionMode) error {
	return p.manager.UpdateSessionMode(sessionID, mode)
}

// CreateCommand registers a custom slash command, reporting a name collision
// as false plus an alert rather than an error.
func (p *Parley) CreateCommand(cmd core.Command) bool {
	return p.manager.CreateCommand(cmd)
}

// Commands lists every registered slash command.
func (p *Parley) Commands() []core.Command {
	return p.manager.Commands()
}

// RegisterTool adds a custom tool to the executor.
func (p *Parley) RegisterTool(t tool.Tool) { p.executor.Register(t) }
