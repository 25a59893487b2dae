package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/config"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the indexed documents",
	Long: `Searches the vector index using a natural language query and returns
matching chunks with their source file and classification. With
--history, fuzzy-searches past conversation turns instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
	searchCmd.Flags().String("classification", "", "only return chunks with this classification")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("history", false, "search past conversation turns instead of documents")
	searchCmd.Flags().String("user", "", "user whose history to search (with --history)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if history, _ := cmd.Flags().GetBool("history"); history {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = osUsername()
		}
		return runHistorySearch(cmd, cfg, userID, queryText, limit, jsonOutput)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, embedder)
	if err != nil {
		return err
	}
	if store.Count() == 0 {
		fmt.Println("The index is empty. Run `docsentry ingest` first.")
		return nil
	}

	var filter *vectordb.SearchFilter
	if cls, _ := cmd.Flags().GetString("classification"); cls != "" {
		filter = &vectordb.SearchFilter{Classification: &cls}
	}

	results, err := store.Query(ctx, queryText, limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for i, r := range results {
		meta := r.Record.Metadata
		fmt.Printf("%d. %s (chunk %d, %.0f%%)\n", i+1, meta.Filename, meta.ChunkIndex, r.Similarity*100)
		if meta.Classification != "" {
			fmt.Printf("   %s / %s\n", meta.Classification, meta.Sensitivity)
		}
		fmt.Printf("   %s\n\n", excerpt(r.Record.Content, 200))
	}
	return nil
}

func runHistorySearch(cmd *cobra.Command, cfg *config.Config, userID, queryText string, limit int, jsonOutput bool) error {
	ctx := cmd.Context()

	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	opts := session.SearchOptions{TopK: limit, Threshold: cfg.History.Threshold}
	matches, err := session.NewStore(database).Search(ctx, userID, queryText, opts)
	if err != nil {
		return fmt.Errorf("history search failed: %w", err)
	}
	if len(matches) == 0 {
		fmt.Println("No matching turns found.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	for i, m := range matches {
		fmt.Printf("%d. [%.2f] %s: %s\n", i+1, m.Score, m.Turn.Role, excerpt(m.Turn.Content, 200))
		fmt.Printf("   session %s\n\n", m.Turn.SessionID)
	}
	return nil
}

// excerpt trims content to at most n runes for terminal display.
func excerpt(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
