package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/profitble/bridge/internal/models"
)

// SQLiteStore handles the bridge's local SQLite database.
type SQLiteStore struct {
	db           *sql.DB
	historyLimit int
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "conversation_state.db".
// historyLimit is the default cap applied when History is called with a
// non-positive limit.
func NewSQLiteStore(ctx context.Context, dbPath string, historyLimit int) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "conversation_state.db"
	}

	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, historyLimit: historyLimit}

	// Initialize schema
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates tables if they don't exist. Schema changes must stay
// additive so restarts over an existing database are safe.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT NOT NULL,
		message_text TEXT NOT NULL,
		is_from_user INTEGER NOT NULL,
		timestamp REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sender_timestamp
	ON messages (sender_id, timestamp);

	CREATE TABLE IF NOT EXISTS processing_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_processed_row_id INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO processing_state (id, last_processed_row_id)
	VALUES (1, 0);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage appends a message, assigning its local id and timestamp. The
// insert is committed before return; a failed commit surfaces as an error and
// is never retried here.
func (s *SQLiteStore) SaveMessage(ctx context.Context, senderID, text string, direction models.Direction) (*models.Message, error) {
	if senderID == "" {
		return nil, errors.New("senderID must not be empty")
	}

	now := float64(time.Now().UnixNano()) / 1e9

	isFromUser := 0
	if direction == models.Inbound {
		isFromUser = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, message_text, is_from_user, timestamp)
		VALUES (?, ?, ?, ?)
	`, senderID, text, isFromUser, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:        id,
		SenderID:  senderID,
		Text:      text,
		Direction: direction,
		Timestamp: now,
	}, nil
}

// History returns at most limit most recent messages for a sender, oldest
// first. A non-positive limit falls back to the configured history limit.
func (s *SQLiteStore) History(ctx context.Context, senderID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, message_text, is_from_user, timestamp
		FROM messages
		WHERE sender_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, senderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.Message
	for rows.Next() {
		var m models.Message
		var isFromUser int

		if err := rows.Scan(&m.ID, &m.SenderID, &m.Text, &isFromUser, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Direction = models.Outbound
		if isFromUser == 1 {
			m.Direction = models.Inbound
		}
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returned newest first; flip to ascending order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

// Conversations aggregates the message table into one row per sender with
// the last message and timestamp, most recent conversation first.
func (s *SQLiteStore) Conversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			sender_id,
			MAX(timestamp) as last_timestamp,
			(SELECT message_text FROM messages m2
			 WHERE m2.sender_id = m1.sender_id
			 ORDER BY m2.timestamp DESC, m2.id DESC LIMIT 1) as last_message
		FROM messages m1
		GROUP BY sender_id
		ORDER BY last_timestamp DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var lastMessage sql.NullString

		if err := rows.Scan(&c.SenderID, &c.LastTimestamp, &lastMessage); err != nil {
			return nil, err
		}
		c.LastMessage = lastMessage.String
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// Checkpoint returns the highest foreign-log row id fully absorbed into
// local storage, 0 if never set.
func (s *SQLiteStore) Checkpoint(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_processed_row_id FROM processing_state WHERE id = 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// AdvanceCheckpoint records a new foreign-log position. The guarded UPDATE
// keeps the stored value monotonic: equal or stale values are no-ops.
func (s *SQLiteStore) AdvanceCheckpoint(ctx context.Context, foreignRowID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE processing_state
		SET last_processed_row_id = ?
		WHERE id = 1 AND last_processed_row_id <= ?
	`, foreignRowID, foreignRowID)
	return err
}
