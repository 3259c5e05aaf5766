package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the sample corpus",
	Long: `Runs hybrid search over the code collection: vector similarity plus a
keyword boost for suspicious indicators found in the candidates. Half of
the retrieved candidates survive the re-rank.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("top-k", 0, "candidates to retrieve before re-ranking (overrides config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	topK := cfg.Retrieval.SearchTopK
	if flagK, _ := cmd.Flags().GetInt("top-k"); flagK > 0 {
		topK = flagK
	}

	codeEmb, textEmb, err := newEmbedders(cfg)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, codeEmb, textEmb)
	if err != nil {
		return err
	}

	searcher := newCodeSearcher(cfg, codeEmb, store)
	matches, err := searcher.Hybrid(ctx, query, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	// Boosted scores reuse the similarity slot; past 1.0 they just mean
	// "similar and indicator-heavy".
	display := make([]vectordb.Match, len(matches))
	for i, m := range matches {
		display[i] = vectordb.Match{
			Document: vectordb.Document{
				Content:  m.Text,
				Metadata: m.Meta,
			},
			Similarity: float32(m.Score),
		}
	}
	fmt.Print(vectordb.FormatMatches(display))
	return nil
}
