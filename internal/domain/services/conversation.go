package services

import (
	"context"

	"chatrelay/internal/domain/models"
)

// ConversationService is the typed store adapter over the conversation row store.
// Every backend failure is wrapped around domain.ErrPersistence.
type ConversationService interface {
	// Exists returns the matching conversation, or nil if there is none
	Exists(ctx context.Context, userID, chatName string) (*models.Conversation, error)

	// Create inserts a new empty conversation. Does not check for duplicates.
	Create(ctx context.Context, userID, chatName string) (*models.Conversation, error)

	// List returns the user's conversation names
	List(ctx context.Context, userID string) ([]string, error)

	// Fetch returns the full conversation including messages, or nil if there is none
	Fetch(ctx context.Context, userID, chatName string) (*models.Conversation, error)

	// AppendAndSave stamps both turns, appends them to conv.Messages and
	// writes the updated blob back to the row identified by conv.ID
	AppendAndSave(ctx context.Context, conv *models.Conversation, userTurn, assistantTurn models.Turn) error

	// StartChat validates the name and creates the conversation unless it already exists.
	// Returns created=false when a conversation with that name was already there.
	StartChat(ctx context.Context, userID, chatName string) (created bool, err error)
}
