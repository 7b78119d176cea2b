package turnlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/logicloom/pkg/ports"
	_ "modernc.org/sqlite"
)

// GroupControl routes entries to the control table. Any other label is logged
// to the experimental table.
const (
	GroupControl      = "control"
	GroupExperimental = "experimental"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	student_id TEXT,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	group_type TEXT NOT NULL DEFAULT 'experimental',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_logs_user ON chat_logs(user_id);
CREATE TABLE IF NOT EXISTS control_chat_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	student_id TEXT,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	group_type TEXT NOT NULL DEFAULT 'control',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_control_chat_logs_user ON control_chat_logs(user_id);
`

// SQLite is a ports.TurnLogger backed by a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open turn log database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create turn log schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// LogTurn inserts one entry into the table selected by its group.
func (s *SQLite) LogTurn(ctx context.Context, entry ports.TurnLogEntry) error {
	if entry.Role != ports.RoleUser && entry.Role != ports.RoleAgent {
		return fmt.Errorf("invalid turn log role %q", entry.Role)
	}

	table, group := "chat_logs", entry.Group
	if group == GroupControl {
		table = "control_chat_logs"
	} else if group == "" {
		group = GroupExperimental
	}

	created := entry.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	var student any
	if entry.StudentID != "" {
		student = entry.StudentID
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (user_id, student_id, role, content, group_type, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ConversationID, student, string(entry.Role), entry.Text, group, created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert turn log: %w", err)
	}
	return nil
}

// Entries returns the logged entries of one conversation in insertion order,
// reading from the table of the given group.
func (s *SQLite) Entries(ctx context.Context, group, conversationID string) ([]ports.TurnLogEntry, error) {
	table := "chat_logs"
	if group == GroupControl {
		table = "control_chat_logs"
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, student_id, role, content, group_type, created_at FROM "+table+" WHERE user_id = ? ORDER BY id",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turn log: %w", err)
	}
	defer rows.Close()

	var out []ports.TurnLogEntry
	for rows.Next() {
		var (
			e       ports.TurnLogEntry
			student sql.NullString
			role    string
			created any
		)
		if err := rows.Scan(&e.ConversationID, &student, &role, &e.Text, &e.Group, &created); err != nil {
			return nil, fmt.Errorf("scan turn log: %w", err)
		}
		e.CreatedAt = parseTime(created)
		e.Role = ports.Role(role)
		e.StudentID = student.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return errors.New("turn log already closed")
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// parseTime accepts the driver's native time value or the RFC 3339 text we write.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, _ := time.Parse(time.RFC3339Nano, t)
		return parsed
	case []byte:
		parsed, _ := time.Parse(time.RFC3339Nano, string(t))
		return parsed
	}
	return time.Time{}
}
