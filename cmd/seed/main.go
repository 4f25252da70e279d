package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"chatrelay/internal/auth"
	"chatrelay/internal/config"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/repositories"
	"chatrelay/internal/repository/postgres"
	"chatrelay/internal/repository/sqlite"
	"chatrelay/internal/service/conversation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop the conversation table before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed conversations")
	userID := flag.String("user", "dev-user", "user_id to seed conversations for")
	withHistory := flag.Bool("with-history", false, "Fill the default chat with a generated exchange")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed development token")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables) in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()

	log.Printf("🌱 Seeding %s store (environment: %s, prefix: %s)", cfg.DatabaseDriver, cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()

	var repo repositories.ConversationRepository
	switch cfg.DatabaseDriver {
	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}

		if *dropTables {
			log.Println("🗑️  Dropping conversation table...")
			if err := postgres.DropSchema(ctx, repoConfig); err != nil {
				log.Fatalf("Failed to drop tables: %v", err)
			}
			log.Println("✅ Tables dropped")
		}

		log.Println("📋 Ensuring database schema is up to date...")
		if err := postgres.EnsureSchema(ctx, postgres.NewTransactionManager(pool, logger), repoConfig); err != nil {
			log.Fatalf("Failed to run schema: %v", err)
		}
		repo = postgres.NewConversationRepository(repoConfig)

	case "sqlite":
		// The sqlite store creates its schema on open
		store, err := sqlite.Open(cfg.SQLitePath, cfg.TablePrefix, logger)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		defer store.Close()
		repo = store.Conversations()

	default:
		log.Fatalf("Nothing to seed for DATABASE_DRIVER=%q", cfg.DatabaseDriver)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	conversations := conversation.NewService(repo, logger)

	created, err := conversations.StartChat(ctx, *userID, config.DefaultChatName)
	if err != nil {
		log.Fatalf("Failed to create default chat: %v", err)
	}
	if created {
		log.Printf("✅ Created %q for user %s", config.DefaultChatName, *userID)
	} else {
		log.Printf("ℹ️  %q already exists for user %s", config.DefaultChatName, *userID)
	}

	if *withHistory {
		if err := seedExchange(ctx, conversations, *userID, logger); err != nil {
			log.Fatalf("Failed to seed history: %v", err)
		}
		log.Println("✅ Seeded one exchange")
	}

	token, err := auth.SignHMAC(cfg.SecretKey, &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(*tokenTTL)),
		},
		UserID: models.UserID(*userID),
	})
	if err != nil {
		log.Fatalf("Failed to sign development token: %v", err)
	}

	log.Println("🎉 Seeding complete!")
	fmt.Printf("Authorization: Bearer %s\n", token)
}
