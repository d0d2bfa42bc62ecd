// Package app provides application initialization and dependency wiring.
//
// App is the core container. Setup builds the service tiers in
// dependency order and tolerates absent external systems: without a
// database the vector tier is down, without an index file the keyword
// fallback is empty, and without an API key the model cannot answer.
// Each tier degrades on its own; the HTTP surface stays up.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/config"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
	"github.com/eloquentai/finchat/internal/provider"
)

// App is the core application container.
type App struct {
	// Configuration
	Config *config.Config
	Logger log.Logger

	// Core services
	DBPool    *pgxpool.Pool // nil when the vector tier is down
	Provider  *provider.Client
	Knowledge *knowledge.Store
	Sessions  *auth.Store
	Chat      *chat.Service

	// Lifecycle management
	tracingShutdown func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	// 1. Flush pending trace spans
	if a.tracingShutdown != nil {
		a.tracingShutdown()
	}

	// 2. Close database pool
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}

	return nil
}
