// Package main provides the gateway entry point. The gateway serves the
// /api surface and forwards each call to a chat-service instance or the
// auth service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/gateway"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Reverse proxy in front of the chat and auth services",
		Long: `Serves /api/start_chat, /api/chat_list, /api/chat_history and /api/send_message
by forwarding to a chat-service instance chosen at random per request.
/api/login and /api/register go to the auth service.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.Flags().String("port", "5001", "Port to listen on")
	cmd.Flags().StringArray("chat-service", nil, "Chat service base URL (repeatable)")
	cmd.Flags().String("auth-service", "http://127.0.0.1:5000", "Auth service base URL")
	cmd.Flags().String("cors-origins", "http://localhost:5001", "Comma-separated allowed origins")

	bindings := map[string]string{
		"port":         "GATEWAY_PORT",
		"chat-service": "CHAT_SERVICE_URLS",
		"auth-service": "AUTH_SERVICE_URL",
		"cors-origins": "CORS_ORIGINS",
	}
	for flag, env := range bindings {
		if err := viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
		if err := viper.BindEnv(flag, env); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s env: %v\n", env, err)
			os.Exit(1)
		}
	}

	return cmd
}

// chatServiceURLs merges the flag/env list with the legacy
// CHAT_SERVICE_URL1 and CHAT_SERVICE_URL2 variables.
func chatServiceURLs() []string {
	var urls []string
	for _, entry := range viper.GetStringSlice("chat-service") {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				urls = append(urls, part)
			}
		}
	}

	if len(urls) == 0 {
		for _, env := range []string{"CHAT_SERVICE_URL1", "CHAT_SERVICE_URL2"} {
			if u := os.Getenv(env); u != "" {
				urls = append(urls, u)
			}
		}
	}

	if len(urls) == 0 {
		urls = []string{"http://127.0.0.1:5002"}
	}
	return urls
}

func run(ctx context.Context) error {
	logger, closeLog, err := config.NewLogger(config.LoggingFromEnv())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	gw, err := gateway.New(gateway.Config{
		ChatServiceURLs: chatServiceURLs(),
		AuthServiceURL:  viper.GetString("auth-service"),
	}, logger)
	if err != nil {
		return err
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(viper.GetString("cors-origins"), ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})

	port := viper.GetString("port")
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     corsHandler.Handler(gw.Handler()),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting",
			"port", port,
			"chat_services", gw.Backends(),
			"auth_service", viper.GetString("auth-service"),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
