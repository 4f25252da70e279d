package conversation

import (
	"testing"

	"chatrelay/internal/domain/models"
)

func TestBuildPromptContext(t *testing.T) {
	history := models.MessageLog{Messages: []models.Turn{
		{Role: models.RoleUser, Content: "Hi", Timestamp: "2024-01-01T00:00:00Z"},
		{Role: models.RoleAssistant, Content: "Hello!", Timestamp: "2024-01-01T00:00:01Z"},
	}}

	messages := BuildPromptContext(history, "How are you?")

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	want := []struct{ role, content string }{
		{"user", "Hi"},
		{"assistant", "Hello!"},
		{"user", "How are you?"},
	}
	for i, w := range want {
		if messages[i].Role != w.role || messages[i].Content != w.content {
			t.Errorf("message %d: expected %s/%q, got %s/%q", i, w.role, w.content, messages[i].Role, messages[i].Content)
		}
	}
}

func TestBuildPromptContext_EmptyHistory(t *testing.T) {
	messages := BuildPromptContext(models.MessageLog{}, "first")

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "first" {
		t.Errorf("unexpected message: %+v", messages[0])
	}
}
