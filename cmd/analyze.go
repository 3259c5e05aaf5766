package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Analyze suspicious code against the corpus",
	Long: `Classifies the sample, retrieves similar corpus samples, extracts
indicators, derives a YARA rule from the matches and asks the LLM for a
full analysis report grounded in the retrieved context.

With no arguments the sample is read from stdin and the report printed.
With one file the report is printed (or written with --out). With
multiple files each report is written into the reports directory.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("out", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().Bool("html", false, "render the report as a standalone HTML page")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	provider, err := newLLMProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	analyzer := &report.Analyzer{
		Searcher:    newCodeSearcher(cfg, codeEmb, store),
		Extractor:   newExtractor(cfg),
		Router:      analysis.NewRouter(cfg.Signatures.RouterRules),
		Provider:    provider,
		Ledger:      ledger,
		Model:       cfg.Model,
		Temperature: float64(cfg.Temperature),
		ContextSize: cfg.ContextSize,
		TopK:        cfg.Retrieval.AnalyzeTopK,
	}

	// Batch mode: several files, one report file each.
	if len(args) > 1 {
		samples := make([]string, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			samples = append(samples, string(data))
		}

		written, err := analyzer.AnalyzeBatch(ctx, samples, cfg.ReportsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d report(s) to %s\n", len(written), cfg.ReportsDir)
		return nil
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	source, code, err := readSource(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("no code to analyze")
	}

	rep, err := analyzer.Analyze(ctx, source, code)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Category: %s\n", rep.Category)
		fmt.Fprintf(os.Stderr, "Family:   %s\n", rep.Family)
		fmt.Fprintf(os.Stderr, "Matches:  %d\n", len(rep.Matches))
	}

	asHTML, _ := cmd.Flags().GetBool("html")
	out, _ := cmd.Flags().GetString("out")

	content := []byte(rep.Content)
	if asHTML {
		title := fmt.Sprintf("Malware Analysis - %s", filepath.Base(source))
		content, err = report.RenderHTML(title, rep.Content)
		if err != nil {
			return err
		}
		if out == "" {
			out = "report.html"
		}
	}

	if out != "" {
		if err := os.WriteFile(out, content, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	}

	fmt.Println(string(content))
	return nil
}
