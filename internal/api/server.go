// Package api exposes the shopping assistant over HTTP.
//
// Routes are registered on a stdlib ServeMux with method-qualified patterns.
// The middleware chain, outermost first, is recovery, request ID, logging,
// CORS, per-IP rate limiting. User identity comes from the X-User-ID header
// with a "default" fallback; it scopes carts and conversation listings.
package api

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwright0/cartwright/internal/agent"
	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/session"
	"github.com/cartwright0/cartwright/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// Assistant runs conversation turns. Satisfied by *agent.Agent.
type Assistant interface {
	Run(ctx context.Context, userID, input string, history []*ai.Message) (*agent.Response, error)
	Chunks(text string) iter.Seq[string]
}

// Config contains all dependencies for the HTTP server.
type Config struct {
	Logger    log.Logger
	Assistant Assistant
	Sessions  session.Store
	Carts     cart.Store

	// Readiness probes. Pool may be nil (DB-less run); Index may be nil
	// (no semantic search configured).
	Pool  *pgxpool.Pool
	Index tools.Searcher

	// CORS allow-list; empty disables cross-origin access.
	CORSOrigins []string

	// Per-IP rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the cartwright HTTP server.
type Server struct {
	mux      *http.ServeMux
	logger   log.Logger
	handler  http.Handler
	limiter  *ipLimiter
	pool     *pgxpool.Pool
	index    tools.Searcher
	sessions session.Store
	carts    cart.Store
	agent    Assistant
}

// NewServer creates a server with all routes and middleware configured.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Carts == nil {
		return nil, errors.New("cart store is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   cfg.Logger,
		limiter:  newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		pool:     cfg.Pool,
		index:    cfg.Index,
		sessions: cfg.Sessions,
		carts:    cfg.Carts,
		agent:    cfg.Assistant,
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)

	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)

	s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleConversationMessages)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)

	s.mux.HandleFunc("GET /api/cart", s.handleCart)

	// Middleware chain, innermost applied first.
	var h http.Handler = s.mux
	h = s.rateLimitMiddleware(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)
	h = loggingMiddleware(cfg.Logger)(h)
	h = requestIDMiddleware(h)
	h = recoveryMiddleware(cfg.Logger)(h)
	s.handler = h

	return s, nil
}

// Handler returns the middleware-wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.handler,

		// Slowloris protection. WriteTimeout stays unset: SSE responses
		// are open-ended.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}
