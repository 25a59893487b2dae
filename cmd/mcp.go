package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/document"
	mcpserver "github.com/docsentry/docsentry/internal/mcp"
	"github.com/docsentry/docsentry/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server (stdio)",
	Long: `Exposes document search and conversation history over the Model
Context Protocol so MCP clients can query the index directly.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, embedder)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	mcpserver.Version = Version
	srv := mcpserver.NewServer(store, session.NewStore(database), document.NewStore(database))
	return srv.Serve()
}
