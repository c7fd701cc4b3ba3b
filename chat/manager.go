package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parleychat/parley/command"
	"github.com/parleychat/parley/core"
	"github.com/parleychat/parley/logging"
)

// Manager owns the canonical session list and is the single entry point for
// user input. It guards each session against re-entrant sends, resolves slash
// commands and mentions, and dispatches to the strategy bound to the
// session's discussion mode.
type Manager struct {
	store     core.SessionStore
	roster    *core.Roster
	commands  *command.Registry
	runner    *TurnRunner
	moderator *Moderator
	logger    *logging.ChatLogger

	mu   sync.Mutex
	busy map[string]bool
}

// NewManager wires the orchestration core. All collaborators are required
// except the logger.
func NewManager(store core.SessionStore, roster *core.Roster, commands *command.Registry, runner *TurnRunner, moderator *Moderator, logger *logging.ChatLogger) *Manager {
	if logger == nil {
		logger = logging.NewNoOpChatLogger()
	}
	return &Manager{
		store:     store,
		roster:    roster,
		commands:  commands,
		runner:    runner,
		moderator: moderator,
		logger:    logger.WithComponent("manager"),
		busy:      make(map[string]bool),
	}
}

// CreateSession registers a new session after validating the mode and that
// every participant id resolves against the roster.
func (m *Manager) CreateSession(name string, mode core.DiscussionMode, participantIDs ...string) (*core.Session, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid discussion mode %q", mode)
	}
	if _, err := m.roster.Resolve(participantIDs); err != nil {
		return nil, err
	}
	sess := core.NewSession(name, mode, participantIDs...)
	if err := m.store.Create(sess); err != nil {
		return nil, err
	}
	m.logger.Info("chat.session.created", "session_id", sess.ID, "mode", string(mode))
	return sess.Clone(), nil
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(id string) (*core.Session, error) {
	return m.store.Get(id)
}

// Sessions lists all sessions.
func (m *Manager) Sessions() ([]*core.Session, error) {
	return m.store.List()
}

// DeleteSession removes a session permanently.
func (m *Manager) DeleteSession(id string) error {
	return m.store.Delete(id)
}

// SendMessage processes one user input for a session. It is a silent no-op
// when the text trims to empty or when the session is already processing a
// message. It returns after every agent turn triggered by this input has
// settled; a turn failure surfaces in history as an apology message, not as
// a returned error, unless the session itself cannot be loaded or written.
func (m *Manager) SendMessage(ctx context.Context, sessionID, rawText string) error {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" {
		return nil
	}

	if !m.acquire(sessionID) {
		m.logger.Debug("chat.send.reentrant_ignored", "session_id", sessionID)
		return nil
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(sessionID)
	if err != nil {
		return err
	}

	// Slash commands: a resolvable leading token selects a directive for the
	// first agent turn; unknown names stay plain text.
	var cmd *core.Command
	if name, _, ok := command.ParseInput(trimmed); ok {
		if resolved, found := m.commands.Resolve(name); found {
			cmd = &resolved
		}
	}

	participants, err := m.roster.Resolve(sess.Participants())
	if err != nil {
		return err
	}
	mentioned := ParseMentions(trimmed, participants)

	userMsg := core.NewUserMessage(trimmed)
	if err := m.store.AppendMessage(sessionID, userMsg); err != nil {
		return err
	}
	sess.AddMessage(userMsg)

	strategy := ForMode(sess.GetMode(), m.runner, m.roster, m.store, m.moderator)

	start := time.Now()
	err = strategy.HandleMessage(ctx, sess, userMsg, mentioned, cmd)
	m.logger.LogStrategyRun(strategy.Name(), len(participants), time.Since(start), err == nil, err)

	// A failed turn already produced a visible apology message; the send
	// itself succeeded.
	if err != nil {
		var turnErr *TurnError
		if errors.As(err, &turnErr) {
			return nil
		}
		return err
	}
	return nil
}

// UpdateSessionMode switches the strategy used for the next incoming message.
// In-flight turns are not retargeted.
func (m *Manager) UpdateSessionMode(sessionID string, mode core.DiscussionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid discussion mode %q", mode)
	}
	return m.store.SetMode(sessionID, mode)
}

// AddMessage appends a message outside the normal agent-turn path, for
// example UI-injected announcements.
func (m *Manager) AddMessage(sessionID string, msg core.Message) error {
	return m.store.AppendMessage(sessionID, msg)
}

// CreateCommand registers a custom slash command. It returns false and raises
// the registry's alert when the name collides with an existing command.
func (m *Manager) CreateCommand(cmd core.Command) bool {
	return m.commands.Add(cmd)
}

// Commands lists every registered slash command.
func (m *Manager) Commands() []core.Command {
	return m.commands.All()
}

// Busy reports whether the session is currently processing a message.
func (m *Manager) Busy(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[sessionID]
}

func (m *Manager) acquire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy[sessionID] {
		return false
	}
	m.busy[sessionID] = true
	return true
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, sessionID)
}
