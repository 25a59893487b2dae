package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docsentry configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure docsentry and generates a .docsentry.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
