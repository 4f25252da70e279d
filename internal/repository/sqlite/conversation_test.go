package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"
	"chatrelay/internal/repository/repotest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "chat.db"), "test_", logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConversationRepository(t *testing.T) {
	repotest.RunConversationRepositoryTests(t, func(t *testing.T) repositories.ConversationRepository {
		return openTestStore(t).Conversations()
	})
}

func TestOpen_InMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(":memory:", "", logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	repo := store.Conversations()
	ctx := context.Background()
	conv := &models.Conversation{UserID: "u1", Name: "Trip", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.GetByName(ctx, "u1", "Trip"); err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
}

func TestTimeFormat_SortsChronologically(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC)
	earlier := formatTime(base)
	later := formatTime(base.Add(500 * time.Millisecond))
	if earlier >= later {
		t.Errorf("expected %q < %q", earlier, later)
	}
	if got := parseTime(earlier); !got.Equal(base) {
		t.Errorf("expected %v, got %v", base, got)
	}
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	store, err := Open(path, "", logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	conv := &models.Conversation{UserID: "u1", Name: "Trip", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.Conversations().Create(context.Background(), conv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.Close()

	store, err = Open(path, "", logger)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	names, err := store.Conversations().ListNames(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "Trip" {
		t.Errorf("expected [Trip], got %v", names)
	}
}
