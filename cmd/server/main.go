package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/api"
	"github.com/profitble/bridge/internal/applescript"
	"github.com/profitble/bridge/internal/chatdb"
	"github.com/profitble/bridge/internal/config"
	"github.com/profitble/bridge/internal/handlers"
	"github.com/profitble/bridge/internal/hub"
	"github.com/profitble/bridge/internal/poller"
	"github.com/profitble/bridge/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local state store
	st, err := store.NewSQLiteStore(ctx, cfg.LocalDBPath, cfg.HistoryLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("local database init failed")
	}
	defer st.Close()
	logger.Info().Str("path", cfg.LocalDBPath).Msg("local database ready")

	// Foreign log reader (connects lazily; chat.db may not exist yet)
	reader := chatdb.NewReader(cfg.ChatDBPath, logger)
	defer reader.Close()

	// Outbound command executor
	executor := applescript.NewExecutor(
		applescript.OsaRunner{},
		cfg.SendRetryCount,
		cfg.SendRetryDelay,
		logger,
	)

	// Broadcast hub and poll loop
	h := hub.New(logger)

	p := poller.New(reader, st, h, cfg.PollInterval, logger)
	if cfg.WatchChatDB {
		p.WatchFile(cfg.ChatDBPath)
	}
	go p.Run(ctx)

	// Create router
	handler := handlers.NewHandler(st, reader, executor, h, cfg.MessageFetchLimit, cfg.EnableTypingIndicator, logger)
	router := api.NewRouter(logger, handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting bridge server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Stop the poll loop first so no events race the shutdown.
	cancel()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
