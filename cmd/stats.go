package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/docchat/docchat/internal/app"
	"github.com/docchat/docchat/internal/config"
)

// runStats prints knowledge base size and per-source chunk counts.
func runStats() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.RAG.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if stats.Chunks == 0 {
		fmt.Println("knowledge base is empty - run 'docchat ingest' first")
		return nil
	}

	fmt.Printf("%d chunk(s) from %d file(s):\n", stats.Chunks, len(stats.Sources))
	for _, source := range stats.Sources {
		fmt.Printf("  %-40s %d chunk(s)\n", source.Source, source.Chunks)
	}
	return nil
}
