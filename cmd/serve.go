package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cartwright0/cartwright/internal/api"
	"github.com/cartwright0/cartwright/internal/app"
)

// runServe initializes the full application and starts the HTTP API server.
func runServe() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	addr, err := parseServeAddr(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := api.NewServer(api.Config{
		Logger:         logger,
		Assistant:      a.Agent,
		Sessions:       a.Sessions,
		Carts:          a.Carts,
		Pool:           a.Pool,
		Index:          a.Index,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	logger.Info("HTTP server ready", "addr", addr, "api", "/api/*", "health", "/health, /ready")
	return server.Start(ctx, addr)
}
