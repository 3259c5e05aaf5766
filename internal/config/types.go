package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOllama    ProviderType = "ollama"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// Config is the top-level malsift configuration, corresponding to .malsift.yml.
type Config struct {
	Provider        ProviderType `yaml:"provider" koanf:"provider"`
	Model           string       `yaml:"model" koanf:"model"`
	Temperature     float32      `yaml:"temperature" koanf:"temperature"`
	ChatTemperature float32      `yaml:"chat_temperature" koanf:"chat_temperature"`
	ContextSize     int          `yaml:"context_size" koanf:"context_size"`
	OllamaURL       string       `yaml:"ollama_url" koanf:"ollama_url"`

	// RequestsPerMinute paces completion calls against hosted provider
	// quotas. 0 disables pacing; local Ollama needs none.
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	DataDir    string `yaml:"data_dir" koanf:"data_dir"`
	ReportsDir string `yaml:"reports_dir" koanf:"reports_dir"`

	MaxConcurrency int `yaml:"max_concurrency" koanf:"max_concurrency"`
	UpsertBatch    int `yaml:"upsert_batch" koanf:"upsert_batch"`

	Embedding  EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Corpus     CorpusConfig    `yaml:"corpus" koanf:"corpus"`
	Chunking   ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Signatures SignatureConfig `yaml:"signatures" koanf:"signatures"`
	Retrieval  RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server     ServerConfig    `yaml:"server" koanf:"server"`
}

// EmbeddingConfig selects the two embedding models: one for code and
// disassembly, one for prose documents. The dimensions must match what
// the models actually emit; they are validated against the vector store
// collections at open time.
type EmbeddingConfig struct {
	Provider  ProviderType `yaml:"provider" koanf:"provider"`
	CodeModel string       `yaml:"code_model" koanf:"code_model"`
	CodeDim   int          `yaml:"code_dim" koanf:"code_dim"`
	TextModel string       `yaml:"text_model" koanf:"text_model"`
	TextDim   int          `yaml:"text_dim" koanf:"text_dim"`
}

// CorpusConfig controls which sample files the walker picks up.
type CorpusConfig struct {
	Include     []string `yaml:"include" koanf:"include"`
	Exclude     []string `yaml:"exclude" koanf:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size" koanf:"max_file_size"`
	MaxFiles    int      `yaml:"max_files" koanf:"max_files"`

	CodeExtensions   []string `yaml:"code_extensions" koanf:"code_extensions"`
	BinaryExtensions []string `yaml:"binary_extensions" koanf:"binary_extensions"`
	DocExtensions    []string `yaml:"doc_extensions" koanf:"doc_extensions"`

	Families []string `yaml:"families" koanf:"families"`
}

// ChunkingConfig controls how source files are split into chunks.
type ChunkingConfig struct {
	BoundaryKeywords []string `yaml:"boundary_keywords" koanf:"boundary_keywords"`
	BoundaryMinLines int      `yaml:"boundary_min_lines" koanf:"boundary_min_lines"`
	MaxLines         int      `yaml:"max_lines" koanf:"max_lines"`
}

// SignatureConfig carries the ordered indicator lists used by the
// feature extractor and the keyword sets used by the query router.
// Order matters: extracted features are reported in list order.
type SignatureConfig struct {
	SuspiciousAPIs  []string     `yaml:"suspicious_apis" koanf:"suspicious_apis"`
	NetworkPatterns []string     `yaml:"network_patterns" koanf:"network_patterns"`
	CryptoPatterns  []string     `yaml:"crypto_patterns" koanf:"crypto_patterns"`
	RouterRules     []RouterRule `yaml:"router_rules" koanf:"router_rules"`
}

// RouterRule maps a malware category to the keywords that select it.
// Rules are evaluated in order; the first match wins.
type RouterRule struct {
	Category string   `yaml:"category" koanf:"category"`
	Keywords []string `yaml:"keywords" koanf:"keywords"`
}

// RetrievalConfig controls the hybrid search behaviour.
type RetrievalConfig struct {
	CodeCollection string  `yaml:"code_collection" koanf:"code_collection"`
	TextCollection string  `yaml:"text_collection" koanf:"text_collection"`
	KeywordBoost   float64 `yaml:"keyword_boost" koanf:"keyword_boost"`
	SearchTopK     int     `yaml:"search_top_k" koanf:"search_top_k"`
	AnalyzeTopK    int     `yaml:"analyze_top_k" koanf:"analyze_top_k"`
	ChatTopK       int     `yaml:"chat_top_k" koanf:"chat_top_k"`
}

// ServerConfig holds HTTP API settings for malsift serve.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}
