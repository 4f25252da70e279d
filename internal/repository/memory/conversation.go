// Package memory provides an in-process conversation store for tests and
// single-process development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"

	"github.com/google/uuid"
)

type conversationKey struct {
	userID string
	name   string
}

// ConversationRepository keeps conversation rows in a map guarded by a mutex.
// Returned rows are copies; mutating them does not touch the store.
type ConversationRepository struct {
	mu     sync.RWMutex
	rows   map[string]*models.Conversation
	byName map[conversationKey]string
	seq    map[string]int
	next   int
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates an empty store
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		rows:   make(map[string]*models.Conversation),
		byName: make(map[conversationKey]string),
		seq:    make(map[string]int),
	}
}

// Create inserts a new conversation row
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := conversationKey{userID: conv.UserID, name: conv.Name}
	if existingID, ok := r.byName[key]; ok {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("conversation '%s' already exists", conv.Name),
			ResourceType: "conversation",
			ResourceID:   existingID,
		}
	}

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}

	r.rows[conv.ID] = copyConversation(conv)
	r.byName[key] = conv.ID
	r.seq[conv.ID] = r.next
	r.next++
	return nil
}

// GetByName retrieves a conversation by owner and name
func (r *ConversationRepository) GetByName(ctx context.Context, userID, name string) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[conversationKey{userID: userID, name: name}]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", name, domain.ErrNotFound)
	}
	return copyConversation(r.rows[id]), nil
}

// ListNames returns the user's conversation names in insertion order
func (r *ConversationRepository) ListNames(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*models.Conversation
	for _, conv := range r.rows {
		if conv.UserID == userID {
			owned = append(owned, conv)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.Before(owned[j].CreatedAt)
		}
		return r.seq[owned[i].ID] < r.seq[owned[j].ID]
	})

	names := make([]string, 0, len(owned))
	for _, conv := range owned {
		names = append(names, conv.Name)
	}
	return names, nil
}

// UpdateMessages overwrites the message blob of one row
func (r *ConversationRepository) UpdateMessages(ctx context.Context, id string, messages models.MessageLog, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	conv.Messages = copyLog(messages)
	conv.UpdatedAt = updatedAt
	return nil
}

func copyConversation(conv *models.Conversation) *models.Conversation {
	c := *conv
	c.Messages = copyLog(conv.Messages)
	return &c
}

func copyLog(log models.MessageLog) models.MessageLog {
	turns := make([]models.Turn, len(log.Messages))
	copy(turns, log.Messages)
	return models.MessageLog{Messages: turns}
}
