package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

const ddlHistory = `
CREATE TABLE IF NOT EXISTS snapshots (
    id         TEXT    NOT NULL PRIMARY KEY,
    text       TEXT    NOT NULL,
    preview    TEXT    NOT NULL,
    created_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_ns
    ON snapshots (created_ns);

CREATE TABLE IF NOT EXISTS chat_messages (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT    NOT NULL,
    role       TEXT    NOT NULL,
    content    TEXT    NOT NULL,
    created_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_session
    ON chat_messages (session_id, seq);
`

// SQLiteStore is a [Store] backed by a modernc.org/sqlite database file.
// The schema is created on open, so pointing it at a fresh path is enough.
//
// All methods are safe for concurrent use.
type SQLiteStore struct {
	db  *sql.DB
	cap int
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. A cap of 0 or less applies [DefaultCap].
func NewSQLiteStore(ctx context.Context, path string, cap int) (*SQLiteStore, error) {
	if cap <= 0 {
		cap = DefaultCap
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	// The driver serialises writes; a single connection avoids SQLITE_BUSY
	// under concurrent use.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddlHistory); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &SQLiteStore{db: db, cap: cap}, nil
}

// Save implements [Store]. Inserting beyond the cap evicts the oldest
// snapshots in the same transaction.
func (s *SQLiteStore) Save(ctx context.Context, text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyTranscript
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Preview:   makePreview(text),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO snapshots (id, text, preview, created_ns) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, entry.ID, entry.Text, entry.Preview, entry.CreatedAt.UnixNano()); err != nil {
		return Entry{}, fmt.Errorf("sqlite store: insert snapshot: %w", err)
	}

	const evict = `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY created_ns DESC, rowid DESC LIMIT ?
		)`
	if _, err := tx.ExecContext(ctx, evict, s.cap); err != nil {
		return Entry{}, fmt.Errorf("sqlite store: evict snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("sqlite store: commit: %w", err)
	}
	return entry, nil
}

// List implements [Store].
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	const q = `
		SELECT id, text, preview, created_ns
		FROM   snapshots
		ORDER  BY created_ns DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: scan snapshot: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	return entries, nil
}

// Get implements [Store].
func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	const q = `SELECT id, text, preview, created_ns FROM snapshots WHERE id = ?`

	e, err := scanEntry(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite store: get snapshot: %w", err)
	}
	return e, nil
}

// Delete implements [Store].
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite store: delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite store: delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChat implements [Store].
func (s *SQLiteStore) AppendChat(ctx context.Context, sessionID string, msg ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO chat_messages (session_id, role, content, created_ns) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, sessionID, msg.Role, msg.Content, msg.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("sqlite store: append chat: %w", err)
	}
	return nil
}

// RecentChat implements [Store].
func (s *SQLiteStore) RecentChat(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	q := `
		SELECT role, content, created_ns
		FROM   chat_messages
		WHERE  session_id = ?
		ORDER  BY seq DESC`
	args := []any{sessionID}
	if limit > 0 {
		q += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: recent chat: %w", err)
	}
	defer rows.Close()

	msgs := []ChatMessage{}
	for rows.Next() {
		var (
			m  ChatMessage
			ns int64
		)
		if err := rows.Scan(&m.Role, &m.Content, &ns); err != nil {
			return nil, fmt.Errorf("sqlite store: scan chat: %w", err)
		}
		m.CreatedAt = time.Unix(0, ns).UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: recent chat: %w", err)
	}

	// The query walks newest-first; callers want chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Ping implements [Store].
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements [Store].
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanEntry.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e  Entry
		ns int64
	)
	if err := row.Scan(&e.ID, &e.Text, &e.Preview, &ns); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(0, ns).UTC()
	return e, nil
}
