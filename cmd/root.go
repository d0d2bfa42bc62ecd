// Package cmd provides the finchat CLI commands.
//
// Commands:
//   - serve: HTTP API server
//   - load: embed the FAQ dataset into the vector store
//   - index: build the keyword fallback index file
//   - version: show build information
//
// serve handles SIGINT/SIGTERM and shuts down gracefully via context
// cancellation.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eloquentai/finchat/internal/config"
	"github.com/eloquentai/finchat/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "2.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// newRootCmd creates the command tree (factory pattern, so tests get a
// fresh tree per run).
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finchat",
		Short: "Fintech customer support chatbot backend",
		Long: `Finchat answers fintech customer support questions from a curated FAQ
knowledge base. Retrieval is two-tier: vector search over PostgreSQL with
pgvector when a database is configured, and a keyword index as fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newLoadCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute is the main entry point for the finchat CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// bootstrap loads the validated configuration and builds the logger all
// commands share.
func bootstrap() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.Log.SlogLevel(), JSON: cfg.Log.JSON})
	return cfg, logger, nil
}
