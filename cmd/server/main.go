package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatrelay/internal/auth"
	"chatrelay/internal/config"
	"chatrelay/internal/handler"
	"chatrelay/internal/middleware"
	"chatrelay/internal/service/conversation"
	serviceLLM "chatrelay/internal/service/llm"
	"chatrelay/internal/service/load"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.DatabaseDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Token verification: JWKS when configured, shared secret otherwise
	decoder, err := newTokenDecoder(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create token decoder: %v", err)
	}
	defer decoder.Close()
	resolver := auth.NewResolver(decoder, logger)

	// Conversation store
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open conversation store: %v", err)
	}
	defer store.Close()

	conversationService := conversation.NewService(store.Conversations, logger)

	// Upstream completion pool
	upstreams, err := serviceLLM.SetupUpstreams(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup upstream clients: %v", err)
	}

	loadMonitor := load.New(cfg.ResponseMode, cfg.OverloadThreshold, logger)

	chatHandler := handler.NewChatHandler(
		conversationService,
		upstreams,
		loadMonitor,
		cfg.Debug,
		logger,
	)

	logger.Info("services initialized",
		"upstreams", upstreams.Len(),
		"response_mode", cfg.ResponseMode,
	)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, chatHandler)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestLogger → Recovery → Auth → Routes
	h = middleware.Authenticate(resolver, logger, handler.HealthPath)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived streamed replies
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
		return
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func newTokenDecoder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.TokenDecoder, error) {
	if cfg.JWKSURL != "" {
		logger.Info("verifying tokens against JWKS", "url", cfg.JWKSURL)
		return auth.NewJWKSDecoder(ctx, cfg.JWKSURL, logger)
	}
	if cfg.Environment == "prod" && cfg.SecretKey == "dummy_secret" {
		logger.Warn("SECRET_KEY is the development default; set it in production")
	}
	return auth.NewHMACDecoder(cfg.SecretKey, cfg.JWTAlgorithms), nil
}
