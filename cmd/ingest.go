package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/docchat/docchat/internal/app"
	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/ingest"
)

// runIngest loads the data directory into the knowledge base, replacing any
// previously stored chunks. An optional positional argument overrides the
// configured data directory.
func runIngest(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(args) > 0 {
		cfg.DataDir = args[0]
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

	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline, err := ingest.New(a.Knowledge, chunker, cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("running ingestion: %w", err)
	}

	fmt.Printf("ingested %d document(s) as %d chunk(s) in %s\n",
		result.Documents, result.Chunks, result.Duration.Round(timePrecision))
	return nil
}
