package main

import (
	"context"
	"fmt"
	"log/slog"

	"chatrelay/internal/config"
	"chatrelay/internal/domain/repositories"
	"chatrelay/internal/repository/memory"
	"chatrelay/internal/repository/postgres"
	"chatrelay/internal/repository/sqlite"
)

// conversationStore bundles the selected repository with its cleanup
type conversationStore struct {
	Conversations repositories.ConversationRepository
	close         func()
}

func (s *conversationStore) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStore selects the conversation store named by DATABASE_DRIVER
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*conversationStore, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}

		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		txManager := postgres.NewTransactionManager(pool, logger)
		if err := postgres.EnsureSchema(ctx, txManager, repoConfig); err != nil {
			pool.Close()
			return nil, err
		}

		logger.Info("database connected",
			"max_conns", pool.Config().MaxConns,
			"min_conns", pool.Config().MinConns,
			"table", repoConfig.Tables.ChatHistory,
		)

		return &conversationStore{
			Conversations: postgres.NewConversationRepository(repoConfig),
			close:         pool.Close,
		}, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath, cfg.TablePrefix, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", "path", cfg.SQLitePath)

		return &conversationStore{
			Conversations: store.Conversations(),
			close: func() {
				if err := store.Close(); err != nil {
					logger.Error("close sqlite store", "error", err)
				}
			},
		}, nil

	case "memory":
		logger.Warn("using in-memory conversation store; history is lost on restart")
		return &conversationStore{Conversations: memory.NewConversationRepository()}, nil

	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q (want postgres, sqlite or memory)", cfg.DatabaseDriver)
	}
}
