// Package app wires the application together.
//
// Setup builds every component in dependency order: tracing, database pool,
// migrations, Genkit, embedder, catalog client, product index, stores, tools
// and the agent. Close tears down in reverse.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/catalog"
	"github.com/cartwright0/cartwright/internal/config"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/session"
	"github.com/cartwright0/cartwright/internal/tools"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool // nil in DB-less runs

	Catalog  *catalog.Client
	Carts    cart.Store
	Sessions session.Store
	Index    tools.Searcher // nil when the index is disabled

	Tools    []ai.Tool
	Registry *tools.Registry
	Agent    *agent.Agent

	otelCleanup func()
}

// Close releases all resources in reverse construction order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
