// Package mcp exposes the shopping tools over the Model Context Protocol.
//
// The server wraps the official MCP SDK and registers the same nine tools
// the agent dispatches, backed by the same Handler. Any MCP client (IDE,
// desktop assistant, genkit CLI) can browse the catalog and edit the cart
// through the standard tools/list and tools/call endpoints.
//
// MCP runs single-user over stdio, so the server carries one user identity
// for all cart operations; it defaults to the shared "default" user.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/tools"
)

// Server wraps the MCP SDK server and the shopping tool handler.
type Server struct {
	mcpServer *mcp.Server
	handler   *tools.Handler
	logger    log.Logger
	userID    string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Handler *tools.Handler
	Logger  log.Logger

	// UserID is the cart owner for every tool call on this connection.
	// Empty means the shared default user.
	UserID string
}

// NewServer creates an MCP server with all shopping tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("tool handler is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.UserID == "" {
		cfg.UserID = tools.DefaultUserID
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		handler: cfg.Handler,
		logger:  cfg.Logger,
		userID:  cfg.UserID,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP on the given transport. Blocks until the client
// disconnects or the context is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("MCP server running", "user", s.userID)
	return s.mcpServer.Run(ctx, transport)
}
