package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// providerModels lists the default analysis model per provider, shown as
// the wizard's suggestion.
var providerModels = map[ProviderType]string{
	ProviderOllama:    "dolphin3:8b",
	ProviderOpenAI:    "gpt-4o",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .malsift.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to malsift! Let's configure your analysis environment.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"ollama", "openai", "anthropic"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Analysis model.
	modelPrompt := promptui.Prompt{
		Label:   "Analysis model",
		Default: providerModels[cfg.Provider],
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	// 3. Embedding provider. Ollama embeds locally; cloud providers use
	// OpenAI embeddings.
	if cfg.Provider == ProviderOllama {
		cfg.Embedding.Provider = ProviderOllama
	} else {
		embedPrompt := promptui.Select{
			Label: "Embedding provider",
			Items: []string{"ollama", "openai"},
		}
		_, embedStr, err := embedPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		cfg.Embedding.Provider = ProviderType(embedStr)
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.CodeModel = "text-embedding-3-small"
			cfg.Embedding.CodeDim = 1536
			cfg.Embedding.TextModel = "text-embedding-3-small"
			cfg.Embedding.TextDim = 1536
		}
	}

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (vector store, ledger, reports)",
		Default: ".malsift",
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. Extra exclude patterns for the corpus walk.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Corpus.Exclude = append(cfg.Corpus.Exclude, splitAndTrim(excludeStr)...)
	}

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Provider, cfg.Embedding.Provider} {
		envVar := APIKeyEnvVar(p)
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running malsift ingest.\n", envVar)
		}
	}

	// Save to .malsift.yml.
	configPath := ".malsift.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, token := range strings.Split(s, ",") {
		if token = strings.TrimSpace(token); token != "" {
			result = append(result, token)
		}
	}
	return result
}
