package conversation

import (
	"chatrelay/internal/domain/models"
	llmSvc "chatrelay/internal/domain/services/llm"
)

// BuildPromptContext converts stored history to role/content pairs and
// appends the new user message. Timestamps are dropped. The system turn is
// not included; the chat engine owns it.
func BuildPromptContext(history models.MessageLog, text string) []llmSvc.Message {
	messages := make([]llmSvc.Message, 0, history.Len()+1)
	for _, turn := range history.Messages {
		messages = append(messages, llmSvc.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return append(messages, llmSvc.Message{
		Role:    string(models.RoleUser),
		Content: text,
	})
}
