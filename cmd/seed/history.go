package main

import (
	"context"
	"fmt"
	"log/slog"

	"chatrelay/internal/config"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/service/conversation"
	serviceLLM "chatrelay/internal/service/llm"
	"chatrelay/internal/service/llm/providers/lorem"
)

const seedPrompt = "Give me a short travel tip."

// seedExchange runs one buffered exchange against the offline generator and
// stores it, so a fresh environment has history to render.
func seedExchange(ctx context.Context, conversations *conversation.Service, userID string, logger *slog.Logger) error {
	conv, err := conversations.Fetch(ctx, userID, config.DefaultChatName)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%q not found for user %s", config.DefaultChatName, userID)
	}

	engine := serviceLLM.NewEngine(lorem.NewProvider("seed"), serviceLLM.GenerationParams{
		Model:     "lorem-instant",
		MaxTokens: 120,
	}, 0, logger)

	reply := engine.Send(ctx, conversation.BuildPromptContext(conv.Messages, seedPrompt))
	if reply.Degraded {
		return reply.Err
	}

	return conversations.AppendAndSave(ctx, conv,
		models.Turn{Role: models.RoleUser, Content: seedPrompt},
		models.Turn{Role: models.RoleAssistant, Content: reply.Text},
	)
}
