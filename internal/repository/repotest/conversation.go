// Package repotest holds behavior tests shared by every ConversationRepository backend.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"
)

// RunConversationRepositoryTests exercises repo against the repository contract.
// newRepo must return an empty repository for each call.
func RunConversationRepositoryTests(t *testing.T, newRepo func(t *testing.T) repositories.ConversationRepository) {
	t.Helper()

	t.Run("create and get by name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		conv := newConversation("u1", "Trip")
		if err := repo.Create(ctx, conv); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if conv.ID == "" {
			t.Fatal("expected Create to assign an id")
		}

		got, err := repo.GetByName(ctx, "u1", "Trip")
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}
		if got.ID != conv.ID || got.UserID != "u1" || got.Name != "Trip" {
			t.Errorf("unexpected row: %+v", got)
		}
		if got.Messages.Messages == nil || got.Messages.Len() != 0 {
			t.Errorf("expected empty non-nil message list, got %#v", got.Messages.Messages)
		}
	})

	t.Run("get by name is scoped to the user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newConversation("u1", "Trip")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		_, err := repo.GetByName(ctx, "u2", "Trip")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if err := repo.Create(ctx, newConversation("u1", "Trip")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err := repo.Create(ctx, newConversation("u1", "Trip"))
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("expected *domain.ConflictError, got %T", err)
		}

		// Same name for another user is fine
		if err := repo.Create(ctx, newConversation("u2", "Trip")); err != nil {
			t.Errorf("expected other user to reuse the name, got %v", err)
		}
	})

	t.Run("list names in insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		names, err := repo.ListNames(ctx, "u1")
		if err != nil {
			t.Fatalf("ListNames failed: %v", err)
		}
		if names == nil || len(names) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", names)
		}

		base := time.Now().Add(-time.Hour)
		for i, name := range []string{"A", "B", "C"} {
			conv := newConversation("u1", name)
			conv.CreatedAt = base.Add(time.Duration(i) * time.Second)
			conv.UpdatedAt = conv.CreatedAt
			if err := repo.Create(ctx, conv); err != nil {
				t.Fatalf("Create %s failed: %v", name, err)
			}
		}
		if err := repo.Create(ctx, newConversation("u2", "Z")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		names, err = repo.ListNames(ctx, "u1")
		if err != nil {
			t.Fatalf("ListNames failed: %v", err)
		}
		want := []string{"A", "B", "C"}
		if len(names) != len(want) {
			t.Fatalf("expected %v, got %v", want, names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("expected names[%d] = %q, got %q", i, want[i], names[i])
			}
		}
	})

	t.Run("update messages", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		conv := newConversation("u1", "Trip")
		if err := repo.Create(ctx, conv); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		now := time.Now()
		log := models.MessageLog{Messages: []models.Turn{
			models.NewStoredTurn(models.RoleUser, "hi", now),
			models.NewStoredTurn(models.RoleAssistant, "hello", now),
		}}
		if err := repo.UpdateMessages(ctx, conv.ID, log, now); err != nil {
			t.Fatalf("UpdateMessages failed: %v", err)
		}

		got, err := repo.GetByName(ctx, "u1", "Trip")
		if err != nil {
			t.Fatalf("GetByName failed: %v", err)
		}
		if got.Messages.Len() != 2 {
			t.Fatalf("expected 2 turns, got %d", got.Messages.Len())
		}
		first, second := got.Messages.Messages[0], got.Messages.Messages[1]
		if first.Role != models.RoleUser || first.Content != "hi" {
			t.Errorf("unexpected first turn: %+v", first)
		}
		if second.Role != models.RoleAssistant || second.Content != "hello" {
			t.Errorf("unexpected second turn: %+v", second)
		}
		if first.Timestamp == "" {
			t.Error("expected stored turn to keep its timestamp")
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.UpdateMessages(context.Background(), "00000000-0000-0000-0000-000000000000",
			models.MessageLog{}, time.Now())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func newConversation(userID, name string) *models.Conversation {
	now := time.Now()
	return &models.Conversation{
		UserID:    userID,
		Name:      name,
		Messages:  models.MessageLog{Messages: []models.Turn{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
