// Package cmd implements the docsentry command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/logger"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "docsentry",
	Short: "Document ingestion, classification, and retrieval-augmented chat",
	Long: `Docsentry ingests your documents, classifies them for security
handling, and builds a semantic index over their content. You can then
chat with the corpus, search it, and expose it to AI agents via MCP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(verbose, logJSON)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".docsentry.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}
