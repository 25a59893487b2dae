package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/docsentry/docsentry/internal/chunker"
	"github.com/docsentry/docsentry/internal/config"
	"github.com/docsentry/docsentry/internal/db"
	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/embeddings"
	"github.com/docsentry/docsentry/internal/engine"
	"github.com/docsentry/docsentry/internal/extract"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/keywords"
	"github.com/docsentry/docsentry/internal/llm"
	"github.com/docsentry/docsentry/internal/router"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// maxProviderAttempts bounds retries against the OpenAI API.
const maxProviderAttempts = 4

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docsentry init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createProviderFromConfig builds the chat provider with rate limiting
// and bounded retries layered on.
func createProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable (or openai_api_key in config) is required")
	}
	var provider llm.Provider = llm.NewOpenAIProvider(apiKey, cfg.ChatModel)
	provider = llm.NewRateLimitedProvider(provider, 60)
	provider = llm.NewRetryingProvider(provider, maxProviderAttempts)
	return provider, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
}

// vectorDir is where the persisted index lives under the data directory.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}

// openStore creates the chromem store and loads any persisted index.
// A missing index is not an error; the store starts empty.
func openStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (vectordb.Store, error) {
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(ctx, vectorDir(cfg)); err != nil {
		return nil, fmt.Errorf("loading vector store: %w", err)
	}
	return store, nil
}

// openDatabase opens the SQLite catalog/conversation database.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	return db.Open(filepath.Join(cfg.DataDir, "docsentry.db"))
}

// buildPipeline assembles the full ingestion pipeline from config.
// onReport, if non-nil, is called as each file completes.
func buildPipeline(cfg *config.Config, provider llm.Provider, store vectordb.Store, catalog *document.Store, onReport func(ingest.Report)) *ingest.Pipeline {
	tagger := keywords.NewTagger(
		keywords.NewModelStrategy(provider, cfg.ChatModel, cfg.Keywords.Min, cfg.Keywords.Max),
		keywords.NewStatisticalStrategy(cfg.Keywords.TopN, cfg.Keywords.PoolSize),
	)
	indexer := chunker.NewIndexer(store, chunker.Options{
		Size:    cfg.Chunk.Size,
		Overlap: cfg.Chunk.Overlap,
	})
	return ingest.NewPipeline(
		extract.NewDispatcher(extract.NewRegistry(), cfg.QuarantineDir),
		tagger,
		ingest.NewClassifier(provider, cfg.ChatModel),
		indexer,
		catalog,
		ingest.Options{MaxConcurrency: cfg.MaxConcurrency, Progress: onReport},
	)
}

// buildEngine assembles the conversation engine from config.
func buildEngine(cfg *config.Config, provider llm.Provider, store vectordb.Store, sessions *session.Store) *engine.Engine {
	return engine.New(provider, store, sessions, router.New(provider, cfg.ChatModel), engine.Options{
		Model:         cfg.ChatModel,
		HistoryWindow: cfg.Retrieval.HistoryWindow,
		TopK:          cfg.Retrieval.TopK,
	})
}
