package postgres

import (
	"context"
	"fmt"

	"chatrelay/internal/domain/repositories"
)

// EnsureSchema creates the conversation table and its (user_id, name) unique
// index if they are missing. Existing tables are left as they are, so a
// legacy chat_history table only gains the index.
func EnsureSchema(ctx context.Context, txm repositories.TransactionManager, config *RepositoryConfig) error {
	table := config.Tables.ChatHistory
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				messages JSONB NOT NULL DEFAULT '{"messages": []}'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, table),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_user_name_key ON %s (user_id, name)`, table, table),
	}

	return txm.ExecTx(ctx, func(txCtx context.Context) error {
		executor := GetExecutor(txCtx, config.Pool)
		for _, stmt := range statements {
			if _, err := executor.Exec(txCtx, stmt); err != nil {
				return fmt.Errorf("ensure schema for %s: %w", table, err)
			}
		}
		config.Logger.Info("schema ready", "table", table)
		return nil
	})
}

// DropSchema removes the conversation table. Destructive; dev tooling only.
func DropSchema(ctx context.Context, config *RepositoryConfig) error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, config.Tables.ChatHistory)
	if _, err := config.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("drop %s: %w", config.Tables.ChatHistory, err)
	}
	return nil
}
