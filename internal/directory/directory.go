package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotLinked is returned when a unit or chat has no directory entry.
var ErrNotLinked = errors.New("directory: unit not linked to any chat")

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	unit_number TEXT PRIMARY KEY,
	chat_id     INTEGER NOT NULL,
	topic_id    INTEGER NOT NULL DEFAULT 0,
	title       TEXT NOT NULL DEFAULT '',
	linked_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_groups_chat ON groups(chat_id);

CREATE TABLE IF NOT EXISTS users (
	chat_id    INTEGER PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	first_seen TIMESTAMP NOT NULL
);
`

// Group is one unit-to-chat link.
type Group struct {
	UnitNumber string
	ChatID     int64
	TopicID    int
	Title      string
	LinkedAt   time.Time
}

// Store is the SQLite-backed directory.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the directory database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening directory db: %w", err)
	}
	// Single writer keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating directory db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LinkUnit links a unit number to a group chat, replacing any previous
// link for that unit.
func (s *Store) LinkUnit(ctx context.Context, unit string, chatID int64, topicID int, title string) error {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return errors.New("directory: unit number is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (unit_number, chat_id, topic_id, title, linked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(unit_number) DO UPDATE SET
			chat_id   = excluded.chat_id,
			topic_id  = excluded.topic_id,
			title     = excluded.title,
			linked_at = excluded.linked_at`,
		unit, chatID, topicID, title, s.now().UTC())
	if err != nil {
		return fmt.Errorf("linking unit %s: %w", unit, err)
	}
	return nil
}

// UnlinkChat removes every unit link pointing at the chat and reports
// how many were removed.
func (s *Store) UnlinkChat(ctx context.Context, chatID int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("unlinking chat %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unlinking chat %d: %w", chatID, err)
	}
	return int(n), nil
}

// ChatForUnit returns the chat linked to a unit number.
func (s *Store) ChatForUnit(ctx context.Context, unit string) (int64, error) {
	var chatID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id FROM groups WHERE unit_number = ?`,
		strings.TrimSpace(unit)).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotLinked
	}
	if err != nil {
		return 0, fmt.Errorf("looking up unit %s: %w", unit, err)
	}
	return chatID, nil
}

// UnitForChat returns the unit most recently linked to the chat.
func (s *Store) UnitForChat(ctx context.Context, chatID int64) (string, error) {
	var unit string
	err := s.db.QueryRowContext(ctx,
		`SELECT unit_number FROM groups WHERE chat_id = ? ORDER BY linked_at DESC, unit_number LIMIT 1`,
		chatID).Scan(&unit)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotLinked
	}
	if err != nil {
		return "", fmt.Errorf("looking up chat %d: %w", chatID, err)
	}
	return unit, nil
}

// Groups lists every unit link ordered by unit number.
func (s *Store) Groups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit_number, chat_id, topic_id, title, linked_at FROM groups ORDER BY unit_number`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.UnitNumber, &g.ChatID, &g.TopicID, &g.Title, &g.LinkedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// RememberUser records a user chat, updating the username on repeat
// visits while keeping the original first-seen time.
func (s *Store) RememberUser(ctx context.Context, chatID int64, username string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, username, first_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET username = excluded.username`,
		chatID, username, s.now().UTC())
	if err != nil {
		return fmt.Errorf("remembering user %d: %w", chatID, err)
	}
	return nil
}
