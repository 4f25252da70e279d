package repositories

import (
	"context"
	"time"

	"chatrelay/internal/domain/models"
)

// ConversationRepository defines the interface for conversation row storage.
// Rows are keyed by (user_id, name) for reads and by id for updates.
type ConversationRepository interface {
	// Create inserts a new conversation row.
	// Sets conv.ID if empty. Returns a *domain.ConflictError if (user_id, name) already exists.
	Create(ctx context.Context, conv *models.Conversation) error

	// GetByName retrieves the full row including messages.
	// Returns domain.ErrNotFound if no row matches.
	GetByName(ctx context.Context, userID, name string) (*models.Conversation, error)

	// ListNames returns the user's conversation names in insertion order.
	// Returns empty slice if the user has none.
	ListNames(ctx context.Context, userID string) ([]string, error)

	// UpdateMessages overwrites the message blob and updated_at of the row with the given id.
	// Returns domain.ErrNotFound if the row does not exist.
	UpdateMessages(ctx context.Context, id string, messages models.MessageLog, updatedAt time.Time) error
}
