package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartwright0/cartwright/internal/app"
	"github.com/cartwright0/cartwright/internal/mcp"
	"github.com/cartwright0/cartwright/internal/tools"
)

// runMCP starts the MCP server on stdio transport. Like chat mode it runs
// without PostgreSQL; the cart lives in memory for the connection.
func runMCP() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting MCP server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger, app.Options{SkipDatabase: true})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	handler, err := tools.NewHandler(a.Catalog, a.Carts, a.Index, logger)
	if err != nil {
		return fmt.Errorf("creating tool handler: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    "cartwright",
		Version: Version,
		Handler: handler,
		Logger:  logger,
		UserID:  chatUserID(),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio")

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}

	logger.Info("MCP server shut down")
	return nil
}
