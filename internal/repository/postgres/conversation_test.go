package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"chatrelay/internal/domain/repositories"
	"chatrelay/internal/repository/repotest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPgDuplicateError(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsPgDuplicateError(dup) {
		t.Error("expected wrapped 23505 to be a duplicate error")
	}
	if IsPgDuplicateError(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected 23503 not to be a duplicate error")
	}
	if IsPgDuplicateError(errors.New("plain")) {
		t.Error("expected plain error not to be a duplicate error")
	}
}

func TestIsPgNoRowsError(t *testing.T) {
	if !IsPgNoRowsError(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
}

func TestNewTableNames(t *testing.T) {
	if got := NewTableNames("dev_").ChatHistory; got != "dev_chat_history" {
		t.Errorf("expected dev_chat_history, got %s", got)
	}
	if got := NewTableNames("").ChatHistory; got != "chat_history" {
		t.Errorf("expected chat_history, got %s", got)
	}
}

// TestConversationRepository runs against a live database when
// TEST_DATABASE_URL is set. Each subtest gets its own table.
func TestConversationRepository(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, databaseURL)
	if err != nil {
		t.Fatalf("CreateConnectionPool failed: %v", err)
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	txm := NewTransactionManager(pool, logger)

	repotest.RunConversationRepositoryTests(t, func(t *testing.T) repositories.ConversationRepository {
		config := &RepositoryConfig{
			Pool:   pool,
			Tables: NewTableNames(fmt.Sprintf("test_%d_", time.Now().UnixNano())),
			Logger: logger,
		}
		if err := EnsureSchema(ctx, txm, config); err != nil {
			t.Fatalf("EnsureSchema failed: %v", err)
		}
		t.Cleanup(func() {
			if err := DropSchema(context.Background(), config); err != nil {
				t.Logf("drop schema: %v", err)
			}
		})
		return NewConversationRepository(config)
	})
}
