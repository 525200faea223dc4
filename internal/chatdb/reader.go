// Package chatdb reads the macOS Messages database. The database belongs to
// the Messages app; the bridge opens it read-only and must tolerate it being
// absent or momentarily locked.
package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/models"
)

// appleEpochOffset converts Apple's Core Data epoch (2001-01-01) to Unix
// seconds. Messages stores dates as nanoseconds since that epoch.
const appleEpochOffset = 978307200

// Reader is a read-only adapter over chat.db.
type Reader struct {
	path   string
	logger zerolog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewReader creates a reader for the given chat.db path. The connection is
// opened lazily on first use so the bridge can start before Messages has
// ever run.
func NewReader(path string, logger zerolog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// conn returns the open database handle, connecting if needed. Returns
// (nil, nil) when the database file does not exist yet.
func (r *Reader) conn(ctx context.Context) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", r.path))
	if err != nil {
		return nil, fmt.Errorf("open chat database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to chat database: %w", err)
	}

	r.logger.Info().Str("path", r.path).Msg("connected to Messages database")
	r.db = db
	return db, nil
}

// ListNewRows returns text messages with ROWID strictly greater than sinceID,
// ascending. An absent database yields an empty result, not an error.
func (r *Reader) ListNewRows(ctx context.Context, sinceID int64) ([]models.ForeignRow, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			message.ROWID,
			handle.id,
			message.text,
			message.is_from_me,
			message.date/1000000000 + ? as timestamp
		FROM message
		INNER JOIN handle ON message.handle_id = handle.ROWID
		WHERE message.ROWID > ?
		  AND handle.service = 'iMessage'
		  AND message.text IS NOT NULL
		ORDER BY message.ROWID ASC
	`, appleEpochOffset, sinceID)
	if err != nil {
		return nil, fmt.Errorf("query new messages: %w", err)
	}
	defer rows.Close()

	var result []models.ForeignRow
	for rows.Next() {
		var row models.ForeignRow
		var isFromMe int

		if err := rows.Scan(&row.ForeignID, &row.SenderID, &row.Text, &isFromMe, &row.Timestamp); err != nil {
			return nil, err
		}
		row.Direction = models.Inbound
		if isFromMe == 1 {
			row.Direction = models.Outbound
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListConversations returns one entry per iMessage counterparty with its
// last message, most recent first. Only phone-number handles are included;
// chat.db also carries email handles and other services the bridge ignores.
func (r *Reader) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			handle.id as sender_id,
			MAX(message.date/1000000000 + ?) as last_timestamp,
			(SELECT text FROM message
			 WHERE message.handle_id = handle.ROWID
			 ORDER BY message.date DESC LIMIT 1) as last_message
		FROM handle
		INNER JOIN message ON message.handle_id = handle.ROWID
		WHERE handle.service = 'iMessage'
		GROUP BY handle.id
		ORDER BY last_timestamp DESC
	`, appleEpochOffset)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var lastTimestamp sql.NullFloat64
		var lastMessage sql.NullString

		if err := rows.Scan(&c.SenderID, &lastTimestamp, &lastMessage); err != nil {
			return nil, err
		}
		if len(c.SenderID) == 0 || c.SenderID[0] != '+' {
			continue
		}
		c.LastTimestamp = lastTimestamp.Float64
		c.LastMessage = lastMessage.String
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// MessagesForKey returns up to limit messages exchanged with one contact,
// oldest first.
func (r *Reader) MessagesForKey(ctx context.Context, senderID string, limit int) ([]models.ForeignMessage, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			message.text,
			message.is_from_me,
			message.date/1000000000 + ? as timestamp
		FROM message
		INNER JOIN handle ON message.handle_id = handle.ROWID
		WHERE handle.id = ? AND handle.service = 'iMessage'
		  AND message.text IS NOT NULL
		ORDER BY message.date ASC
		LIMIT ?
	`, appleEpochOffset, senderID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages for %s: %w", senderID, err)
	}
	defer rows.Close()

	var messages []models.ForeignMessage
	for rows.Next() {
		var m models.ForeignMessage
		var isFromMe int

		if err := rows.Scan(&m.Text, &isFromMe, &m.Timestamp); err != nil {
			return nil, err
		}
		m.IsFromUser = isFromMe == 0
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Close closes the database connection if one was opened.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
