package config

// DefaultExcludes are glob patterns skipped when walking an inbox
// directory.
var DefaultExcludes = []string{
	".git/**",
	".docsentry/**",
	"quarantine/**",
	"*.tmp",
	"*.part",
	".DS_Store",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ChatModel:      "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		DataDir:        ".docsentry",
		InboxDir:       "inbox",
		QuarantineDir:  "quarantine",
		Include:        []string{"**"},
		Exclude:        DefaultExcludes,
		MaxConcurrency: 4,
		Chunk:          ChunkConfig{Size: 1000, Overlap: 200},
		Retrieval:      RetrievalConfig{TopK: 5, HistoryWindow: 6},
		History:        HistoryConfig{TopK: 5, Threshold: 0.3},
		Keywords:       KeywordConfig{Min: 3, Max: 10, TopN: 8, PoolSize: 30},
		Server:         ServerConfig{Host: "127.0.0.1", Port: 8420},
	}
}
