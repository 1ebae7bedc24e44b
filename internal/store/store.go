package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Message is an archived chat message. ID is the server-assigned message id.
type Message struct {
	ID         int64
	ChannelID  int64
	UserID     int64
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message. Saving an id twice overwrites the earlier copy.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a single message by id.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages retrieves messages from a channel in chronological order.
	// If beforeID is provided, returns messages older than that ID.
	// Limit determines max number of messages to return.
	ListMessages(ctx context.Context, channelID int64, limit int, beforeID *int64) ([]*Message, error)

	// CountMessages returns the number of archived messages.
	CountMessages(ctx context.Context) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
