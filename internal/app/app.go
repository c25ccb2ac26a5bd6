// Package app provides application initialization and dependency wiring.
//
// App is the container that connects configuration, the database pool, the
// Gemini client, the knowledge store and the question answering service.
// Commands build an App, use the pieces they need and Close it on exit.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/gemini"
	"github.com/docchat/docchat/internal/knowledge"
	"github.com/docchat/docchat/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool    *pgxpool.Pool
	Gemini    *gemini.Client
	Knowledge *knowledge.Store
	RAG       *rag.Service

	dbCleanup func()
}

// Close releases all resources. Safe to call more than once.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
		a.Logger.Debug("database pool closed")
	}
	return nil
}
