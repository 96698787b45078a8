package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cartwright0/cartwright/internal/app"
	"github.com/cartwright0/cartwright/internal/catalog"
)

// indexBuilder is satisfied by both index backends.
type indexBuilder interface {
	Build(ctx context.Context, products []catalog.Product) error
}

// runIndex rebuilds the product embedding index from the catalog. Unlike
// the build-at-startup path, a failure here is fatal so operators see it.
func runIndex() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger, app.Options{SkipIndexBuild: true})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	builder, ok := a.Index.(indexBuilder)
	if !ok {
		return fmt.Errorf("index backend %q does not support rebuilds", cfg.IndexBackend)
	}

	products, err := a.Catalog.Products(ctx)
	if err != nil {
		return fmt.Errorf("fetching catalog: %w", err)
	}
	if err := builder.Build(ctx, products); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	logger.Info("product index rebuilt", "backend", cfg.IndexBackend, "products", len(products))
	return nil
}
