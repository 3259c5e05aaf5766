package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/analysis"
	mcpserver "github.com/vxlab/malsift/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing corpus
search, feature extraction, YARA generation and corpus statistics to AI
agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		codeEmb, textEmb, err := newEmbedders(cfg)
		if err != nil {
			return err
		}
		store, err := loadStore(cfg, codeEmb, textEmb)
		if err != nil {
			return err
		}
		ledger, err := openLedger(cfg)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer ledger.Close()

		mcpserver.Version = Version

		// Stdout carries the protocol; status goes to stderr.
		fmt.Fprintf(os.Stderr, "malsift MCP server started on stdio (code points=%d, doc points=%d)\n",
			store.Count(cfg.Retrieval.CodeCollection), store.Count(cfg.Retrieval.TextCollection))

		srv := mcpserver.NewServer(mcpserver.Config{
			CodeCollection: cfg.Retrieval.CodeCollection,
			TextCollection: cfg.Retrieval.TextCollection,
			SearchTopK:     cfg.Retrieval.SearchTopK,
		},
			newCodeSearcher(cfg, codeEmb, store),
			newExtractor(cfg),
			analysis.NewRouter(cfg.Signatures.RouterRules),
			store,
			ledger,
		)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
