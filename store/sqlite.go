package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parleychat/parley/core"
)

// SQLiteStore is a durable core.SessionStore backed by a SQLite database.
// Session rows hold the metadata; each message is one row in the messages
// table serialized as JSON, ordered by a per-session sequence number. Batch
// appends are applied in a single transaction so readers never observe a
// partial batch.
type SQLiteStore struct {
	conn *sql.DB
}

var _ core.SessionStore = (*SQLiteStore)(nil)

// DefaultPath returns the default database location (~/.parley/parley.db).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "parley.db"
	}
	return filepath.Join(home, ".parley", "parley.db")
}

// OpenSQLite opens or creates the database at the given path and runs the
// schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode plus a busy timeout so concurrent strategy goroutines queue
	// behind the current writer instead of failing with SQLITE_BUSY.
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes transactions, so the read-max-seq then
	// insert sequence in AppendMessages cannot interleave with another batch.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mode TEXT NOT NULL,
			participants_json TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			payload_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_session_seq
			ON messages(session_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Create persists the session metadata and any history it already carries.
func (s *SQLiteStore) Create(sess *core.Session) error {
	participants, err := json.Marshal(sess.Participants())
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sessions (id, name, mode, participants_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Name, string(sess.GetMode()), string(participants), sess.Created, sess.Updated)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, msg := range sess.Messages() {
		if err := insertMessage(tx, sess.ID, int64(i+1), msg); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get loads a session with its full ordered history.
func (s *SQLiteStore) Get(id string) (*core.Session, error) {
	row := s.conn.QueryRow(`
		SELECT id, name, mode, participants_json, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)

	sess, err := scanSession(row.Scan)
	if err != nil {
		return nil, err
	}

	msgs, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	// Direct assignment keeps the persisted Updated timestamp intact.
	sess.History = msgs
	return sess, nil
}

// List returns all sessions including their histories, ordered by creation
// time.
func (s *SQLiteStore) List() ([]*core.Session, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, mode, participants_json, created_at, updated_at
		FROM sessions ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*core.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sess := range out {
		msgs, err := s.loadMessages(sess.ID)
		if err != nil {
			return nil, err
		}
		sess.History = msgs
	}
	return out, nil
}

// AppendMessage adds one message to the session history.
func (s *SQLiteStore) AppendMessage(sessionID string, msg core.Message) error {
	return s.AppendMessages(sessionID, []core.Message{msg})
}

// AppendMessages applies the batch in a single transaction.
func (s *SQLiteStore) AppendMessages(sessionID string, msgs []core.Message) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(1) FROM sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return core.ErrSessionNotFound
	}

	var lastSeq sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(seq) FROM messages WHERE session_id = ?", sessionID).Scan(&lastSeq); err != nil {
		return fmt.Errorf("get last seq: %w", err)
	}
	seq := lastSeq.Int64

	for _, msg := range msgs {
		seq++
		if err := insertMessage(tx, sessionID, seq, msg); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return tx.Commit()
}

// SetMode switches the session's discussion mode.
func (s *SQLiteStore) SetMode(sessionID string, mode core.DiscussionMode) error {
	result, err := s.conn.Exec(`
		UPDATE sessions SET mode = ?, updated_at = ? WHERE id = ?
	`, string(mode), time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("update mode: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session and, via the foreign key cascade, its messages.
func (s *SQLiteStore) Delete(id string) error {
	result, err := s.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) loadMessages(sessionID string) ([]core.Message, error) {
	rows, err := s.conn.Query(`
		SELECT payload_json FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]core.Message, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var msg core.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func insertMessage(tx *sql.Tx, sessionID string, seq int64, msg core.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO messages (id, session_id, seq, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, sessionID, seq, string(payload), msg.Timestamp)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

type scanFunc func(dest ...any) error

func scanSession(scan scanFunc) (*core.Session, error) {
	var (
		id, name, mode, participantsJSON string
		created, updated                 time.Time
	)
	if err := scan(&id, &name, &mode, &participantsJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}

	var participants []string
	if err := json.Unmarshal([]byte(participantsJSON), &participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}

	sess := core.NewSession(name, core.DiscussionMode(mode), participants...)
	sess.ID = id
	sess.Created = created
	sess.Updated = updated
	return sess, nil
}
