package main

import (
	"chat-relay/auth"
	"chat-relay/httpapi"
	"chat-relay/moderation"
	"chat-relay/presence"
	"chat-relay/repositories"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the server lifecycle, so every
// defer (database close included) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	replacement, err := characterRune(config.CensorReplacement)
	if err != nil {
		return err
	}
	censor, err := moderation.NewCensor(config.CensoredWords, replacement)
	if err != nil {
		return fmt.Errorf("censor build failed: %w", err)
	}

	registry := presence.NewRegistry(log)
	users := repositories.NewUserRepository(db)
	conversations := repositories.NewConversationRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.TokenLifetime)

	relay := services.NewRelayService(log, registry, users, conversations, messages, censor)
	authService := services.NewAuthService(users, issuer)
	conversationService := services.NewConversationService(users, conversations, messages)

	// 4. HTTP surface
	handlers := httpapi.NewHandlers(log, authService, conversationService, users)
	connectionHandler := httpapi.NewConnectionHandler(log, relay, issuer, config.ConnectionBufferSize)
	router := httpapi.NewRouter(handlers, connectionHandler, issuer)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info("Program stopped cleanly")
	return nil
}
