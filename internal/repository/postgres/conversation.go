package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConversationRepository implements the ConversationRepository interface using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new conversation row
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}

	blob, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, r.tables.ChatHistory)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		conv.ID,
		conv.UserID,
		conv.Name,
		blob,
		conv.CreatedAt,
		conv.UpdatedAt,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("conversation '%s' already exists", conv.Name),
				ResourceType: "conversation",
			}
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetByName retrieves a conversation by owner and name
func (r *PostgresConversationRepository) GetByName(ctx context.Context, userID, name string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, messages, created_at, updated_at
		FROM %s
		WHERE user_id = $1 AND name = $2
		ORDER BY created_at, id
		LIMIT 1
	`, r.tables.ChatHistory)

	var conv models.Conversation
	var blob []byte
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, name).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Name,
		&blob,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	conv.Messages, err = models.DecodeMessageLog(blob)
	if err != nil {
		return nil, fmt.Errorf("decode messages of conversation %s: %w", conv.ID, err)
	}

	return &conv, nil
}

// ListNames returns the user's conversation names in insertion order
func (r *PostgresConversationRepository) ListNames(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT name FROM %s
		WHERE user_id = $1
		ORDER BY created_at, id
	`, r.tables.ChatHistory)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan conversation name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return names, nil
}

// UpdateMessages overwrites the message blob of one row
func (r *PostgresConversationRepository) UpdateMessages(ctx context.Context, id string, messages models.MessageLog, updatedAt time.Time) error {
	blob, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET messages = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.ChatHistory)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, blob, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update conversation messages: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	r.logger.Debug("conversation messages saved", "id", id, "turns", messages.Len())
	return nil
}
