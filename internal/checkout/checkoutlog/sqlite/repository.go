// Package sqlite provides a SQLite-backed implementation of
// checkoutlog.Repository.
//
// WAL mode is enabled on Open so readers never block the writer: the
// checkout flow appends while an operator query may be reading.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcmexdev/storefront/internal/checkout/checkoutlog"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the Docker (Alpine) build trivial.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkout_transitions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Storefront session the transition belongs to. Not UNIQUE: one row
    -- per transition.
    session_id  TEXT NOT NULL,

    from_state  TEXT NOT NULL,
    to_state    TEXT NOT NULL,

    -- Failure or refusal detail, empty for clean transitions.
    reason      TEXT NOT NULL DEFAULT '',

    -- W3C trace/span IDs from the active OTel span, for jumping from a
    -- row to the full trace.
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',

    -- RFC3339 stored as TEXT, the SQLite idiom.
    at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkout_transitions_session
    ON checkout_transitions(session_id, at);

CREATE INDEX IF NOT EXISTS idx_checkout_transitions_trace
    ON checkout_transitions(trace_id);
`

// Repository is the SQLite implementation of checkoutlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Repository, error) {
	// busy_timeout waits for locks instead of failing immediately;
	// WAL lets the single writer coexist with readers.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	// "sqlite", not "sqlite3": the modernc driver name.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts one transition entry. Safe for concurrent use.
func (r *Repository) Save(ctx context.Context, entry *checkoutlog.Entry) error {
	const q = `
		INSERT INTO checkout_transitions
			(session_id, from_state, to_state, reason, trace_id, span_id, at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.SessionID,
		entry.From,
		entry.To,
		entry.Reason,
		entry.TraceID,
		entry.SpanID,
		entry.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save checkout transition for %q: %w", entry.SessionID, err)
	}
	return nil
}

// History returns all transitions for a session in chronological order.
// Backs the operator endpoint that answers "where did this checkout get
// stuck".
func (r *Repository) History(ctx context.Context, sessionID string) ([]checkoutlog.Entry, error) {
	const q = `
		SELECT session_id, from_state, to_state, reason, trace_id, span_id, at
		FROM   checkout_transitions
		WHERE  session_id = ?
		ORDER  BY at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query transitions for %q: %w", sessionID, err)
	}
	defer rows.Close()

	var out []checkoutlog.Entry
	for rows.Next() {
		var entry checkoutlog.Entry
		var at string
		if err := rows.Scan(
			&entry.SessionID, &entry.From, &entry.To,
			&entry.Reason, &entry.TraceID, &entry.SpanID, &at,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan transition: %w", err)
		}
		entry.At, err = parseRFC3339(at)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// parseRFC3339 parses the timestamp strings stored in SQLite, which has
// no native datetime type.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
