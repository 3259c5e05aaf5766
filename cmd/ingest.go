package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/corpus"
	"github.com/vxlab/malsift/internal/ingest"
	"github.com/vxlab/malsift/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus-dir]",
	Short: "Ingest a sample corpus into the vector database",
	Long: `Walks the corpus directory, chunks source samples, triages PE binaries,
splits documents into paragraphs, embeds everything and upserts the
points into the local vector store. Re-running on an unchanged corpus
replaces points instead of duplicating them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("concurrency", 0, "max parallel files (overrides config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	corpusRoot := "."
	if len(args) > 0 {
		corpusRoot = args[0]
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning corpus in %s...\n", corpusRoot)
	}

	files, err := corpus.Walk(corpus.WalkConfig{
		Root:        corpusRoot,
		Include:     cfg.Corpus.Include,
		Exclude:     cfg.Corpus.Exclude,
		MaxFileSize: cfg.Corpus.MaxFileSize,
		MaxFiles:    cfg.Corpus.MaxFiles,
		Classifier: corpus.NewClassifier(
			cfg.Corpus.CodeExtensions,
			cfg.Corpus.BinaryExtensions,
			cfg.Corpus.DocExtensions,
		),
		Families: cfg.Corpus.Families,
	})
	if err != nil {
		return fmt.Errorf("walking corpus: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No samples found to ingest.")
		return nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Found %d files to ingest\n", len(files))
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

	extractor := newExtractor(cfg)
	pipeline := &ingest.Pipeline{
		Chunker: ingest.NewChunker(
			cfg.Chunking.BoundaryKeywords,
			cfg.Chunking.BoundaryMinLines,
			cfg.Chunking.MaxLines,
			extractor,
		),
		Extractor:      extractor,
		CodeEmbedder:   codeEmb,
		TextEmbedder:   textEmb,
		Store:          store,
		Ledger:         ledger,
		CodeCollection: cfg.Retrieval.CodeCollection,
		TextCollection: cfg.Retrieval.TextCollection,
		Concurrency:    cfg.MaxConcurrency,
		BatchSize:      cfg.UpsertBatch,
	}

	reporter := progress.NewReporter()
	reporter.Start(len(files))
	pipeline.OnProgress = func(current, total int, path string) {
		reporter.Update(current, path)
	}

	result, err := pipeline.Run(ctx, corpusRoot, files)
	reporter.Finish()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if err := store.Persist(ctx, cfg.DataDir); err != nil {
		return fmt.Errorf("persisting vector store: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Files ingested: %d\n", result.Ingested)
	fmt.Printf("  Files skipped:  %d\n", result.Skipped)
	fmt.Printf("  Files failed:   %d\n", result.Failed)
	if result.Pruned > 0 {
		fmt.Printf("  Files pruned:   %d (vanished from corpus)\n", result.Pruned)
	}
	fmt.Printf("  Points stored:  %d\n", result.Points)
	fmt.Printf("  Duration:       %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Data dir:       %s\n", cfg.DataDir)

	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "\nFailures (%d):\n", result.Failed)
		for _, o := range result.Outcomes {
			if o.Status == "failed" {
				fmt.Fprintf(os.Stderr, "  - %s: %s\n", o.Path, o.Error)
			}
		}
	}

	return nil
}
