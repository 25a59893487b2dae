package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/server"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the REST and WebSocket API for ingestion, search, and chat.
Also watches the inbox directory and ingests files as they appear;
disable with --watch=false.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "host to bind (overrides config)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("allow-all", false, "allow all CORS origins (dev mode)")
	serveCmd.Flags().Bool("watch", true, "watch the inbox directory for new files")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
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
	sessions := session.NewStore(database)
	pipeline := buildPipeline(cfg, provider, store, catalog, nil)
	eng := buildEngine(cfg, provider, store, sessions)

	srvCfg := server.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		InboxDir: cfg.InboxDir,
		HistorySearch: session.SearchOptions{
			TopK:      cfg.History.TopK,
			Threshold: cfg.History.Threshold,
		},
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		srvCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		srvCfg.Port = port
	}
	srvCfg.AllowAll, _ = cmd.Flags().GetBool("allow-all")

	srv := server.New(srvCfg, catalog, store, sessions, eng, pipeline)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		w := watcher.New(cfg.InboxDir, func(hctx context.Context, path string) {
			report, err := pipeline.File(hctx, path)
			if err != nil {
				return
			}
			if report.Status == document.StatusSuccess && !report.Skipped {
				if err := store.Persist(hctx, vectorDir(cfg)); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: persisting index after %s: %v\n", path, err)
				}
			}
		}, 0)
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "Warning: inbox watcher stopped: %v\n", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := store.Persist(shutdownCtx, vectorDir(cfg)); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}
