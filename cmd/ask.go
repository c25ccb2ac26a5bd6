package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docchat/docchat/internal/app"
	"github.com/docchat/docchat/internal/config"
)

// timePrecision keeps durations in command output readable.
const timePrecision = 10 * time.Millisecond

// runAsk answers a single question from the command line.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: docchat ask <question>")
	}

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

	answer, err := a.RAG.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer.Text)
	if files := answer.Files(); len(files) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(files, ", "))
	}
	fmt.Printf("(%d chunk(s), %s)\n", len(answer.Sources), answer.Duration.Round(timePrecision))
	return nil
}
