package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/progress"
	"github.com/docsentry/docsentry/internal/walker"
	"github.com/docsentry/docsentry/internal/watcher"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest documents from a directory into the index",
	Long: `Walks the given directory (default: the configured inbox), runs every
file through extraction, keyword tagging, and classification, and
indexes the resulting chunks. With --watch, keeps running and ingests
files as they appear.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("watch", false, "keep watching the directory for new files")
	ingestCmd.Flags().Int("concurrency", 0, "max parallel ingestions (overrides config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	rootDir := cfg.InboxDir
	if len(args) == 1 {
		rootDir = args[0]
	}
	if _, err := os.Stat(rootDir); err != nil {
		return fmt.Errorf("ingest directory %s: %w", rootDir, err)
	}

	provider, err := createProviderFromConfig(cfg)
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

	catalog := document.NewStore(database)
	reporter := progress.NewReporter()
	var done int
	pipeline := buildPipeline(cfg, provider, store, catalog, func(r ingest.Report) {
		done++
		reporter.Update(done, r.Path)
	})

	files, err := walker.Walk(walker.Config{
		RootDir: rootDir,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", rootDir, err)
	}

	if len(files) > 0 {
		reporter.Start(len(files))

		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		reports, err := pipeline.Run(ctx, paths)
		if err != nil {
			return err
		}
		reporter.Finish()

		var ok, skipped, failed int
		for _, r := range reports {
			switch {
			case r.Err != nil || r.Status == document.StatusError:
				failed++
			case r.Skipped:
				skipped++
			case r.Status == document.StatusSuccess:
				ok++
			}
		}

		if err := store.Persist(ctx, vectorDir(cfg)); err != nil {
			return fmt.Errorf("persisting index: %w", err)
		}

		fmt.Printf("Ingested %d file(s) in %s: %d indexed, %d unchanged, %d failed or quarantined\n",
			len(reports), time.Since(start).Round(time.Millisecond), ok, skipped, len(reports)-ok-skipped)
	} else {
		fmt.Printf("No ingestible files found in %s\n", rootDir)
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return nil
	}

	watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.New(rootDir, func(hctx context.Context, path string) {
		report, err := pipeline.File(hctx, path)
		if err != nil {
			return
		}
		if report.Status == document.StatusSuccess && !report.Skipped {
			if err := store.Persist(hctx, vectorDir(cfg)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: persisting index after %s: %v\n", path, err)
			}
		}
		fmt.Printf("%s: %s\n", path, report.Status)
	}, 0)

	fmt.Printf("Watching %s for new documents (Ctrl-C to stop)...\n", rootDir)
	if err := w.Run(watchCtx); err != nil && watchCtx.Err() == nil {
		return err
	}
	return nil
}
