// Package sqlite provides a single-node conversation store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so TEXT ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store owns the SQLite database handle.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type Store struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Open opens or creates a SQLite database at path and ensures the schema.
// Creates parent directories if they don't exist. The path ":memory:" opens
// a private in-memory database.
func Open(path, tablePrefix string, logger *slog.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:     db,
		table:  tablePrefix + "chat_history",
		logger: logger,
	}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			messages TEXT NOT NULL DEFAULT '{"messages": []}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(user_id, name)
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_user_created
		ON %[1]s(user_id, created_at);
	`, s.table)

	_, err := s.db.Exec(schema)
	return err
}

// Conversations returns the conversation repository backed by this store
func (s *Store) Conversations() repositories.ConversationRepository {
	return &conversationRepository{store: s}
}

type conversationRepository struct {
	store *Store
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}

	blob, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.store.table)

	_, err = r.store.db.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.Name,
		string(blob),
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("conversation '%s' already exists", conv.Name),
				ResourceType: "conversation",
			}
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

func (r *conversationRepository) GetByName(ctx context.Context, userID, name string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, messages, created_at, updated_at
		FROM %s
		WHERE user_id = ? AND name = ?
	`, r.store.table)

	var conv models.Conversation
	var blob, createdAt, updatedAt string
	err := r.store.db.QueryRowContext(ctx, query, userID, name).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Name,
		&blob,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if conv.Messages, err = models.DecodeMessageLog([]byte(blob)); err != nil {
		return nil, fmt.Errorf("decode messages of conversation %s: %w", conv.ID, err)
	}
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)

	return &conv, nil
}

func (r *conversationRepository) ListNames(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT name FROM %s
		WHERE user_id = ?
		ORDER BY created_at, seq
	`, r.store.table)

	rows, err := r.store.db.QueryContext(ctx, query, userID)
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

func (r *conversationRepository) UpdateMessages(ctx context.Context, id string, messages models.MessageLog, updatedAt time.Time) error {
	blob, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET messages = ?, updated_at = ? WHERE id = ?`, r.store.table)
	result, err := r.store.db.ExecContext(ctx, query, string(blob), formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update conversation messages: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation messages: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	r.store.logger.Debug("conversation messages saved", "id", id, "turns", messages.Len())
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the fixed-width layout and any RFC 3339 value
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
