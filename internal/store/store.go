package store

import (
	"context"

	"github.com/profitble/bridge/internal/models"
)

// MessageStore defines the interface for the bridge's durable local state:
// every observed message plus the foreign-log checkpoint.
type MessageStore interface {
	// Connection management
	Close() error
	Ping(ctx context.Context) error

	// Message operations. SaveMessage assigns the local id and timestamp
	// and is durable on return.
	SaveMessage(ctx context.Context, senderID, text string, direction models.Direction) (*models.Message, error)
	History(ctx context.Context, senderID string, limit int) ([]models.Message, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)

	// Checkpoint operations. The stored value is monotonic non-decreasing;
	// callers must persist the corresponding message before advancing.
	Checkpoint(ctx context.Context) (int64, error)
	AdvanceCheckpoint(ctx context.Context, foreignRowID int64) error
}
