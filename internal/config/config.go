package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MALSIFT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: MALSIFT_PROVIDER -> provider,
	// MALSIFT_EMBEDDING__CODE_MODEL -> embedding.code_model, etc.
	if err := k.Load(env.Provider("MALSIFT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MALSIFT_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOllama:    true,
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of ollama, openai, anthropic", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Embedding.Provider != "" && !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.CodeDim <= 0 || c.Embedding.TextDim <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Chunking.BoundaryMinLines < 0 {
		return fmt.Errorf("chunking.boundary_min_lines must be non-negative")
	}
	if c.Chunking.MaxLines <= 0 {
		return fmt.Errorf("chunking.max_lines must be positive")
	}
	if c.Chunking.MaxLines <= c.Chunking.BoundaryMinLines {
		return fmt.Errorf("chunking.max_lines must exceed chunking.boundary_min_lines")
	}

	if c.Retrieval.KeywordBoost < 0 {
		return fmt.Errorf("retrieval.keyword_boost must be non-negative")
	}
	if c.Retrieval.CodeCollection == "" || c.Retrieval.TextCollection == "" {
		return fmt.Errorf("retrieval collections are required")
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be non-negative")
	}
	if c.UpsertBatch <= 0 {
		return fmt.Errorf("upsert_batch must be positive")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}
