package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Show corpus statistics and analysis history",
	Long: `Prints the current state of the local data: point counts per
collection, the last ingest run with its failures, and recent analyses
from the ledger.`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().Int("history", 10, "number of recent analyses to show")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
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

	fmt.Println("Collections:")
	fmt.Printf("  %-16s %d points\n", cfg.Retrieval.CodeCollection, store.Count(cfg.Retrieval.CodeCollection))
	fmt.Printf("  %-16s %d points\n", cfg.Retrieval.TextCollection, store.Count(cfg.Retrieval.TextCollection))

	run, err := ledger.LastRun()
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("\nNo ingest runs recorded. Run `malsift ingest` first.")
		return nil
	}

	fmt.Printf("\nLast ingest run (#%d, %s):\n", run.ID, run.CorpusRoot)
	fmt.Printf("  started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Printf("  finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("  finished: (incomplete)")
	}
	fmt.Printf("  files:    %d total, %d ingested, %d failed\n",
		run.FilesTotal, run.FilesIngested, run.FilesFailed)
	fmt.Printf("  points:   %d\n", run.PointsUpserted)

	if run.FilesFailed > 0 {
		failures, err := ledger.RunFailures(run.ID)
		if err != nil {
			return err
		}
		fmt.Println("  failures:")
		for _, f := range failures {
			fmt.Printf("    - %s: %s\n", f.Path, f.Error)
		}
	}

	limit, _ := cmd.Flags().GetInt("history")
	analyses, err := ledger.RecentAnalyses(limit)
	if err != nil {
		return err
	}
	if len(analyses) > 0 {
		fmt.Println("\nRecent analyses:")
		for _, a := range analyses {
			fmt.Printf("  %s  %-24s %s / %s (%s, %d matches, %s)\n",
				a.CreatedAt.Format("2006-01-02 15:04"),
				a.Source, a.Category, a.Family, a.Model, a.Matches,
				a.Duration.Round(time.Millisecond))
		}
	}

	return nil
}
