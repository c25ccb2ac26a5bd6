// Package cmd provides CLI commands for docchat.
//
// Commands:
//   - migrate: apply database migrations and exit
//   - ingest: load, chunk, embed and store the documents in the data directory
//   - serve: start the HTTP chat server
//   - ask: answer a single question from the terminal
//   - stats: show knowledge base contents
//   - reset: delete every stored chunk
//
// Signal handling and graceful shutdown are implemented for long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/docchat/docchat/internal/log"
)

// Execute is the main entry point for the docchat CLI application.
func Execute() error {
	// Initialize logger once at entry point.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "migrate":
		return runMigrate()
	case "ingest":
		return runIngest(os.Args[2:])
	case "serve":
		return runServe()
	case "ask":
		return runAsk(os.Args[2:])
	case "stats":
		return runStats()
	case "reset":
		return runReset(os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("docchat - chat with your documents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  docchat migrate          Apply database migrations")
	fmt.Println("  docchat ingest [dir]     Load documents into the knowledge base (default: ./data)")
	fmt.Println("  docchat serve [addr]     Start the chat server (default: 127.0.0.1:8080)")
	fmt.Println("  docchat ask <question>   Answer one question from the terminal")
	fmt.Println("  docchat stats            Show knowledge base contents")
	fmt.Println("  docchat reset [--yes]    Delete all stored chunks")
	fmt.Println("  docchat --version        Show version information")
	fmt.Println("  docchat --help           Show this help")
	fmt.Println()
	fmt.Println("Typical first run:")
	fmt.Println("  1. docchat migrate")
	fmt.Println("  2. put .txt / .md files into ./data")
	fmt.Println("  3. docchat ingest")
	fmt.Println("  4. docchat serve")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key (also read from .env)")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* settings")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
