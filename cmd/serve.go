package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docchat/docchat/internal/api"
	"github.com/docchat/docchat/internal/app"
	"github.com/docchat/docchat/internal/config"
)

// defaultAskRate limits /api/ask requests per second. The model API behind
// it is the real bottleneck.
const defaultAskRate = 5

// runServe initializes and starts the HTTP chat server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseServeAddr(os.Args[2:])
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting chat server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := api.NewServer(api.Config{
		Logger:            logger,
		Service:           a.RAG,
		DB:                a.DBPool,
		Addr:              addr,
		RequestsPerSecond: defaultAskRate,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
