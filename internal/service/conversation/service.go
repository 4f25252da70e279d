package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"
	"chatrelay/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Service implements the ConversationService interface over a row store.
type Service struct {
	repo   repositories.ConversationRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a new conversation service
func NewService(repo repositories.ConversationRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

var _ services.ConversationService = (*Service)(nil)

// Exists returns the matching conversation, or nil if there is none
func (s *Service) Exists(ctx context.Context, userID, chatName string) (*models.Conversation, error) {
	return s.Fetch(ctx, userID, chatName)
}

// Create inserts a new empty conversation. Does not check for duplicates.
func (s *Service) Create(ctx context.Context, userID, chatName string) (*models.Conversation, error) {
	now := s.now().UTC()
	conv := &models.Conversation{
		UserID:    userID,
		Name:      chatName,
		Messages:  models.MessageLog{Messages: []models.Turn{}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, persistenceError("create conversation", err)
	}

	s.logger.Info("conversation created",
		"id", conv.ID,
		"user_id", userID,
		"name", chatName,
	)

	return conv, nil
}

// List returns the user's conversation names
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	names, err := s.repo.ListNames(ctx, userID)
	if err != nil {
		return nil, persistenceError("list conversations", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Fetch returns the full conversation including messages, or nil if there is none
func (s *Service) Fetch(ctx context.Context, userID, chatName string) (*models.Conversation, error) {
	conv, err := s.repo.GetByName(ctx, userID, chatName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, persistenceError("fetch conversation", err)
	}
	return conv, nil
}

// AppendAndSave stamps both turns with the current time, appends them to
// conv.Messages and writes the full blob back to the row conv.ID.
func (s *Service) AppendAndSave(ctx context.Context, conv *models.Conversation, userTurn, assistantTurn models.Turn) error {
	now := s.now().UTC()
	userTurn = models.NewStoredTurn(models.RoleUser, userTurn.Content, now)
	assistantTurn = models.NewStoredTurn(models.RoleAssistant, assistantTurn.Content, now)

	conv.Messages.Messages = append(conv.Messages.Messages, userTurn, assistantTurn)

	if err := s.repo.UpdateMessages(ctx, conv.ID, conv.Messages, now); err != nil {
		return persistenceError("save conversation", err)
	}
	conv.UpdatedAt = now

	s.logger.Debug("exchange persisted",
		"id", conv.ID,
		"turns", conv.Messages.Len(),
	)

	return nil
}

// StartChat validates the name and creates the conversation unless it
// already exists. A concurrent create that loses the unique-index race is
// reported the same as an existing conversation.
func (s *Service) StartChat(ctx context.Context, userID, chatName string) (bool, error) {
	if err := ValidateChatName(chatName); err != nil {
		return false, err
	}

	existing, err := s.Exists(ctx, userID, chatName)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if _, err := s.Create(ctx, userID, chatName); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Debug("conversation created concurrently", "user_id", userID, "name", chatName)
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// ValidateChatName checks a conversation name supplied by a client
func ValidateChatName(chatName string) error {
	err := validation.Validate(chatName,
		validation.Required.Error("Invalid request, 'chat_name' is required"),
		validation.RuneLength(1, config.MaxChatNameLength).
			Error(fmt.Sprintf("chat_name must be at most %d characters", config.MaxChatNameLength)),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}

// ValidateMessage checks a user message supplied by a client
func ValidateMessage(message string) error {
	err := validation.Validate(message,
		validation.Required.Error("Invalid request, 'message' is required"),
		validation.RuneLength(1, config.MaxMessageLength).
			Error(fmt.Sprintf("message must be at most %d characters", config.MaxMessageLength)),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
