package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/triyaj/pkg/triyaj/internalerr"
	"github.com/cognicore/triyaj/pkg/triyaj/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite session database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Pragmas apply per connection, so keep the pool at one.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// NewID mints a session id.
func (s *sqliteStore) NewID() string { return store.NewULID() }

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	locale TEXT NOT NULL,
	turn_index INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	terminal INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	session_id TEXT NOT NULL,
	turn_index INTEGER NOT NULL,
	envelope_type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	PRIMARY KEY(session_id, turn_index, envelope_type),
	FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Save inserts or replaces a session. The full session is stored as JSON;
// the scalar columns exist for retention queries and never change a
// session's creation time.
func (s *sqliteStore) Save(ctx context.Context, sess store.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("save session: %w", internalerr.ErrInvalidInput)
	}

	state, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO sessions (id, locale, turn_index, created_at, updated_at, terminal, state)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	locale=excluded.locale,
	turn_index=excluded.turn_index,
	updated_at=excluded.updated_at,
	terminal=excluded.terminal,
	state=excluded.state;
`

	terminal := 0
	if sess.Terminal {
		terminal = 1
	}
	_, err = s.db.ExecContext(
		ctx,
		stmt,
		sess.ID,
		sess.Locale,
		sess.TurnIndex,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.UpdatedAt.UTC().Format(time.RFC3339),
		terminal,
		string(state),
	)
	return err
}

// Load retrieves a session by id.
func (s *sqliteStore) Load(ctx context.Context, id string) (store.Session, bool, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if err == sql.ErrNoRows {
		return store.Session{}, false, nil
	}
	if err != nil {
		return store.Session{}, false, err
	}

	var sess store.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return store.Session{}, false, err
	}
	return sess, true, nil
}

// AppendEvent records an emitted envelope. Replayed appends are ignored via
// the primary key on (session_id, turn_index, envelope_type).
func (s *sqliteStore) AppendEvent(ctx context.Context, e store.Event) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO events (session_id, turn_index, envelope_type, payload, created_at)
VALUES (?, ?, ?, ?, ?);
`,
		e.SessionID,
		e.TurnIndex,
		e.EnvelopeType,
		string(e.Payload),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// EventsBySession returns a session's events ordered by turn index, then
// envelope type.
func (s *sqliteStore) EventsBySession(ctx context.Context, sessionID string) ([]store.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, turn_index, envelope_type, payload, created_at
FROM events
WHERE session_id = ?
ORDER BY turn_index ASC, envelope_type ASC;
`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// EventsSince returns every event created at or after the given time,
// oldest first.
func (s *sqliteStore) EventsSince(ctx context.Context, since time.Time) ([]store.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, turn_index, envelope_type, payload, created_at
FROM events
WHERE created_at >= ?
ORDER BY created_at ASC, session_id ASC, turn_index ASC;
`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]store.Event, error) {
	defer rows.Close()

	var events []store.Event
	for rows.Next() {
		var (
			e       store.Event
			payload string
			created string
		)
		if err := rows.Scan(&e.SessionID, &e.TurnIndex, &e.EnvelopeType, &payload, &created); err != nil {
			return nil, err
		}
		if payload != "" {
			e.Payload = json.RawMessage(payload)
		}
		if parsed, perr := time.Parse(time.RFC3339, created); perr == nil {
			e.CreatedAt = parsed
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountSessions returns the number of stored sessions.
func (s *sqliteStore) CountSessions(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total)
	return total, err
}

// DeleteSessionsBefore removes sessions last updated before the cutoff.
// Their events go with them through the foreign key cascade.
func (s *sqliteStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
