package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/cartwright0/cartwright/db"
	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/catalog"
	"github.com/cartwright0/cartwright/internal/config"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/search"
	"github.com/cartwright0/cartwright/internal/session"
	"github.com/cartwright0/cartwright/internal/tools"
)

// Options tunes what Setup wires in.
type Options struct {
	// SkipDatabase uses in-memory cart and conversation stores. The chat
	// and mcp commands use this so they run without PostgreSQL.
	SkipDatabase bool

	// SkipIndexBuild skips embedding the catalog at startup.
	// search_products falls back to substring matching until an index
	// build runs.
	SkipIndexBuild bool
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger, opts Options) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	if !opts.SkipDatabase {
		pool, err := provideDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Catalog = catalog.New(cfg.CatalogBaseURL, time.Duration(cfg.CatalogTimeoutMS)*time.Millisecond)
	a.Carts = provideCartStore(a)
	a.Sessions = provideSessionStore(a)

	index, err := provideIndex(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	a.Index = index

	if err := provideAgent(a); err != nil {
		return nil, err
	}

	logger.Info("application initialized",
		"model", cfg.FullModelName(),
		"index_backend", cfg.IndexBackend,
		"database", !opts.SkipDatabase,
	)
	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit
// initialization, so Genkit's TracerProvider picks up the processor.
// An empty endpoint disables tracing.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("OTLP tracing enabled", "endpoint", cfg.OTLPEndpoint)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the Google GenAI plugin.
// The plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	logger.Debug("initialized Genkit", "model", cfg.FullModelName())
	return g, nil
}

func provideCartStore(a *App) cart.Store {
	if a.Pool != nil {
		return cart.NewPostgresStore(a.Pool)
	}
	return cart.NewMemoryStore()
}

func provideSessionStore(a *App) session.Store {
	if a.Pool != nil {
		return session.NewPostgresStore(a.Pool, a.Logger)
	}
	return session.NewMemoryStore()
}

// provideIndex creates the configured index backend and, unless skipped,
// embeds the catalog at startup. A failed build is non-fatal:
// search_products degrades to substring matching.
func provideIndex(ctx context.Context, a *App, opts Options) (tools.Searcher, error) {
	cfg := a.Config

	switch cfg.IndexBackend {
	case config.IndexPostgres:
		if a.Pool == nil {
			return nil, fmt.Errorf("%w: postgres index requires a database", config.ErrInvalidIndexBackend)
		}
		index, err := search.NewPgIndex(ctx, a.Embedder, a.Pool, cfg.EmbedderDimension)
		if err != nil {
			return nil, fmt.Errorf("creating pgvector index: %w", err)
		}
		if !opts.SkipIndexBuild {
			buildIndex(ctx, a, index)
		}
		return index, nil

	default: // config.IndexMemory
		index := search.NewIndex(a.Embedder, cfg.EmbedderDimension)
		if !opts.SkipIndexBuild {
			buildIndex(ctx, a, index)
		}
		return index, nil
	}
}

// indexBuilder is satisfied by both index backends.
type indexBuilder interface {
	Build(ctx context.Context, products []catalog.Product) error
}

func buildIndex(ctx context.Context, a *App, index indexBuilder) {
	products, err := a.Catalog.Products(ctx)
	if err != nil {
		a.Logger.Warn("fetching catalog for index build, continuing without semantic search", "error", err)
		return
	}
	if err := index.Build(ctx, products); err != nil {
		a.Logger.Warn("building product index, continuing without semantic search", "error", err)
		return
	}
	a.Logger.Info("product index built", "products", len(products))
}

// provideAgent registers the shopping tools and builds the agent.
func provideAgent(a *App) error {
	handler, err := tools.NewHandler(a.Catalog, a.Carts, a.Index, a.Logger)
	if err != nil {
		return fmt.Errorf("creating tool handler: %w", err)
	}

	registered, err := tools.Register(a.Genkit, handler)
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	a.Tools = registered
	a.Registry = tools.NewRegistry(a.Genkit)

	assistant, err := agent.New(agent.Config{
		Genkit:      a.Genkit,
		Registry:    a.Registry,
		Logger:      a.Logger,
		Tools:       registered,
		ModelName:   a.Config.FullModelName(),
		MaxTurns:    a.Config.MaxTurns,
		ChunkSize:   a.Config.ChunkSize,
		Temperature: a.Config.Temperature,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = assistant
	return nil
}
