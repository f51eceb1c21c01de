package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
}

// LLMConfig configures the judgment/extraction model
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, mock
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float32 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// EmbeddingConfig configures the embedding service. An empty provider selects keyword retrieval.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, ollama, ""
	Model    string `yaml:"model" mapstructure:"model"`
	Dim      int    `yaml:"dim" mapstructure:"dim"`
}

// RetrievalConfig configures chunking and search
type RetrievalConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // memory, keyword, milvus
	MilvusAddress string `yaml:"milvus_address,omitempty" mapstructure:"milvus_address"`
	ChunkWords    int    `yaml:"chunk_words" mapstructure:"chunk_words"`
	ChunkOverlap  int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	TopK          int    `yaml:"top_k" mapstructure:"top_k"`
	Rerank        bool   `yaml:"rerank" mapstructure:"rerank"`
	MaxQueries    int    `yaml:"max_queries" mapstructure:"max_queries"`
}

// ScoringConfig holds the tunable contradiction constants
type ScoringConfig struct {
	ContradictionThreshold float64  `yaml:"contradiction_threshold" mapstructure:"contradiction_threshold"`
	ComparableMargin       *float64 `yaml:"comparable_margin,omitempty" mapstructure:"comparable_margin"` // nil keeps the default, zero is allowed
	OverrideWeight         *float64 `yaml:"override_weight,omitempty" mapstructure:"override_weight"`
}

// RetryConfig bounds external calls
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	CallTimeout     time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
}

// ConcurrencyConfig bounds parallelism
type ConcurrencyConfig struct {
	Stories int `yaml:"stories" mapstructure:"stories"` // Stories processed in parallel
	Claims  int `yaml:"claims" mapstructure:"claims"`   // Claims gathered in parallel per story
}

// CacheConfig configures completion/embedding caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig configures result files
type OutputConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	CSVPath      string `yaml:"csv_path" mapstructure:"csv_path"`
	Submission   bool   `yaml:"submission" mapstructure:"submission"` // Strip confidence column
	DebugReports bool   `yaml:"debug_reports" mapstructure:"debug_reports"`
	Verbose      bool   `yaml:"verbose" mapstructure:"verbose"`
}

// HTTPConfig configures URL-sourced narratives
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// Float64 returns a pointer to f, for optional config values
func Float64(f float64) *float64 {
	return &f
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			Timeout:           60,
			MaxTokens:         800,
			Temperature:       0.1,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Embedding: EmbeddingConfig{
			Provider: "",
			Model:    "nomic-embed-text",
			Dim:      768,
		},
		Retrieval: RetrievalConfig{
			Backend:      "memory",
			ChunkWords:   1000,
			ChunkOverlap: 200,
			TopK:         5,
			Rerank:       true,
			MaxQueries:   3,
		},
		Scoring: ScoringConfig{
			ContradictionThreshold: 0.75,
			ComparableMargin:       Float64(0.05),
			OverrideWeight:         Float64(0.3),
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
			CallTimeout:     60 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Stories: 2,
			Claims:  4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".continuum-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Dir:          "./continuum-reports",
			CSVPath:      "results.csv",
			DebugReports: true,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Continuum/0.1 (+https://github.com/ppiankov/continuum)",
			MaxBodyBytes: 20_000_000,
		},
	}
}
