// Package cmd provides the CLI commands for cartwright.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - chat: interactive terminal chat with the Bubble Tea TUI
//   - mcp: Model Context Protocol server for IDE integration
//   - index: rebuild the product embedding index
//
// All long-running commands install a signal context so Ctrl+C and
// SIGTERM shut down gracefully.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cartwright0/cartwright/internal/config"
	"github.com/cartwright0/cartwright/internal/log"
)

// Execute is the entry point for the cartwright CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "chat":
		return runChat()
	case "mcp":
		return runMCP()
	case "index":
		return runIndex()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads and validates configuration, and builds the logger the
// command runs with. DEBUG=1 lowers the log level.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: logLevel()})
	return cfg, logger, nil
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Cartwright - Conversational shopping assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cartwright serve [addr]  Start the HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  cartwright chat          Start interactive chat in the terminal")
	fmt.Println("  cartwright mcp           Start the MCP server (stdio, for IDE clients)")
	fmt.Println("  cartwright index         Rebuild the product embedding index")
	fmt.Println("  cartwright --version     Show version information")
	fmt.Println("  cartwright --help        Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /help                    Show available commands")
	fmt.Println("  /clear                   Clear conversation history")
	fmt.Println("  /exit, /quit             Exit")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  GEMINI_API_KEY           Required: Gemini API key")
	fmt.Println("  CARTWRIGHT_USER          Optional: cart owner for chat and mcp (default: default)")
	fmt.Println("  DATABASE_URL             Optional: PostgreSQL connection override")
	fmt.Println("  DEBUG                    Optional: enable debug logging")
}
