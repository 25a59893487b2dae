package config

// Config is the top-level docsentry configuration, corresponding to
// .docsentry.yml.
type Config struct {
	OpenAIAPIKey   string          `yaml:"openai_api_key,omitempty" koanf:"openai_api_key"`
	ChatModel      string          `yaml:"chat_model" koanf:"chat_model"`
	EmbeddingModel string          `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir        string          `yaml:"data_dir" koanf:"data_dir"`
	InboxDir       string          `yaml:"inbox_dir" koanf:"inbox_dir"`
	QuarantineDir  string          `yaml:"quarantine_dir" koanf:"quarantine_dir"`
	Include        []string        `yaml:"include" koanf:"include"`
	Exclude        []string        `yaml:"exclude" koanf:"exclude"`
	MaxConcurrency int             `yaml:"max_concurrency" koanf:"max_concurrency"`
	Chunk          ChunkConfig     `yaml:"chunk" koanf:"chunk"`
	Retrieval      RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	History        HistoryConfig   `yaml:"history" koanf:"history"`
	Keywords       KeywordConfig   `yaml:"keywords" koanf:"keywords"`
	Server         ServerConfig    `yaml:"server" koanf:"server"`
}

// ChunkConfig controls how extracted text is split before embedding.
type ChunkConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig controls chat-time retrieval.
type RetrievalConfig struct {
	TopK          int `yaml:"top_k" koanf:"top_k"`
	HistoryWindow int `yaml:"history_window" koanf:"history_window"`
}

// HistoryConfig controls fuzzy search over stored conversations.
type HistoryConfig struct {
	TopK      int     `yaml:"top_k" koanf:"top_k"`
	Threshold float64 `yaml:"threshold" koanf:"threshold"`
}

// KeywordConfig controls keyword extraction.
type KeywordConfig struct {
	Min      int `yaml:"min" koanf:"min"`
	Max      int `yaml:"max" koanf:"max"`
	TopN     int `yaml:"top_n" koanf:"top_n"`
	PoolSize int `yaml:"pool_size" koanf:"pool_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
}
