// drugs-provider: reference drug-information MCP provider.
//
// It searches openFDA drug labels, stores summaries in SQLite, and serves
// them as tools, resources, and a research prompt over stdio.
//
// Usage:
//
//	drugs-provider          # Serve MCP over stdio
//	drugs-provider version  # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/internal/app"
	"github.com/morezero/capabilities-chat/internal/config"
	"github.com/morezero/capabilities-chat/internal/drugs"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("drugs-provider %s\n", drugs.Version)
			return
		case "serve":
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: drugs-provider [serve|version]\n", os.Args[1])
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDrugsProvider(); err != nil {
		return err
	}

	// stdout carries the MCP stream; the logger writes to stderr.
	logger, err := app.NewLogger(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := drugs.OpenStore(cfg.DrugsDBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	s := drugs.NewServer(drugs.ServerParams{
		Store: store,
		Searcher: drugs.NewOpenFDAClient(drugs.OpenFDAConfig{
			BaseURL: cfg.OpenFDAURL,
			APIKey:  cfg.OpenFDAKey,
			Timeout: cfg.OpenFDATimeout,
		}),
		Logger: logger.Named("drugs"),
	})
	logger.Info("serving drug provider over stdio", zap.String("db", cfg.DrugsDBPath))
	return server.ServeStdio(s)
}
