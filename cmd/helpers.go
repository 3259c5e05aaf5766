package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/config"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/embeddings"
	"github.com/vxlab/malsift/internal/llm"
	"github.com/vxlab/malsift/internal/retrieval"
	"github.com/vxlab/malsift/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `malsift init` to create a config file", err)
	}
	return cfg, nil
}

// newEmbedder builds one embedder for the given model and dimensions,
// based on the configured embedding provider.
func newEmbedder(cfg *config.Config, model string, dimensions int) (embeddings.Embedder, error) {
	provider := cfg.Embedding.Provider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, model, dimensions), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, dimensions, cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("provider %q has no embedding support; set embedding.provider to ollama or openai", provider)
	}
}

// newEmbedders builds the code and text embedders.
func newEmbedders(cfg *config.Config) (code, text embeddings.Embedder, err error) {
	code, err = newEmbedder(cfg, cfg.Embedding.CodeModel, cfg.Embedding.CodeDim)
	if err != nil {
		return nil, nil, fmt.Errorf("creating code embedder: %w", err)
	}
	text, err = newEmbedder(cfg, cfg.Embedding.TextModel, cfg.Embedding.TextDim)
	if err != nil {
		return nil, nil, fmt.Errorf("creating text embedder: %w", err)
	}
	return code, text, nil
}

// newStore builds the vector store with both collections bound to their
// embedders.
func newStore(cfg *config.Config, code, text embeddings.Embedder) (*vectordb.ChromemStore, error) {
	return vectordb.NewChromemStore(map[string]embeddings.Embedder{
		cfg.Retrieval.CodeCollection: code,
		cfg.Retrieval.TextCollection: text,
	})
}

// loadStore builds the store and loads persisted data from the data
// dir. A missing store is not an error; searches just come back empty
// until `malsift ingest` runs.
func loadStore(cfg *config.Config, code, text embeddings.Embedder) (*vectordb.ChromemStore, error) {
	store, err := newStore(cfg, code, text)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(context.Background(), cfg.DataDir); err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", cfg.DataDir, err)
		}
	}
	return store, nil
}

// openLedger opens the SQLite ledger under the data dir, creating the
// directory if needed.
func openLedger(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return db.Open(filepath.Join(cfg.DataDir, "malsift.db"))
}

func newExtractor(cfg *config.Config) *analysis.Extractor {
	return analysis.NewExtractor(
		cfg.Signatures.SuspiciousAPIs,
		cfg.Signatures.NetworkPatterns,
		cfg.Signatures.CryptoPatterns,
	)
}

// newCodeSearcher wires the hybrid searcher over the code collection,
// the one every query-time path uses.
func newCodeSearcher(cfg *config.Config, code embeddings.Embedder, store vectordb.Store) *retrieval.Searcher {
	return retrieval.NewSearcher(code, store, newExtractor(cfg), cfg.Retrieval.CodeCollection, cfg.Retrieval.KeywordBoost)
}

func newLLMProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.OllamaURL)
	if err != nil {
		return nil, err
	}
	// Hosted APIs meter requests per minute; batch analysis hammers
	// them one completion per sample without this.
	return llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute), nil
}

// readSource returns the analysis input: the named file's contents, or
// stdin when path is "-" or empty.
func readSource(path string) (name, code string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "stdin", string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return path, string(data), nil
}
