package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "malsift",
	Short: "Retrieval-augmented malware analysis over a local sample corpus",
	Long: `Malsift ingests a malware sample corpus into a local vector database
and uses it to ground LLM-driven analysis: hybrid semantic search,
feature extraction, YARA rule generation and full analysis reports.
The corpus, the embeddings and the analysis history stay on disk.`,
}

func Execute() error {
	// API keys commonly live in a local .env during analysis work.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".malsift.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
