package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"

	"github.com/cartwright0/cartwright/internal/app"
	"github.com/cartwright0/cartwright/internal/tools"
	"github.com/cartwright0/cartwright/internal/tui"
)

// runChat starts the interactive terminal chat. It runs without
// PostgreSQL: the cart and the conversation live in memory for the
// session.
func runChat() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger, app.Options{SkipDatabase: true})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	model, err := tui.New(ctx, a.Agent, chatUserID())
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

// chatUserID returns the cart owner for local sessions.
func chatUserID() string {
	if u := os.Getenv("CARTWRIGHT_USER"); u != "" {
		return u
	}
	return tools.DefaultUserID
}
