package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/report"
	"github.com/vxlab/malsift/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the corpus over HTTP: hybrid search, feature extraction, full
analysis and a WebSocket chat endpoint. The server loads the vector
store once at startup; re-run after ingesting new samples.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().Bool("allow-all", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if allowAll, _ := cmd.Flags().GetBool("allow-all"); allowAll {
		cfg.Server.AllowedOrigins = []string{"*"}
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

	searcher := newCodeSearcher(cfg, codeEmb, store)
	extractor := newExtractor(cfg)

	analyzer := &report.Analyzer{
		Searcher:    searcher,
		Extractor:   extractor,
		Router:      analysis.NewRouter(cfg.Signatures.RouterRules),
		Provider:    provider,
		Ledger:      ledger,
		Model:       cfg.Model,
		Temperature: float64(cfg.Temperature),
		ContextSize: cfg.ContextSize,
		TopK:        cfg.Retrieval.AnalyzeTopK,
	}

	newChat := func() *report.Chat {
		return &report.Chat{
			Searcher:    searcher,
			Provider:    provider,
			Model:       cfg.Model,
			Temperature: float64(cfg.ChatTemperature),
			ContextSize: cfg.ContextSize,
			TopK:        cfg.Retrieval.ChatTopK,
		}
	}

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CodeCollection: cfg.Retrieval.CodeCollection,
		TextCollection: cfg.Retrieval.TextCollection,
		SearchTopK:     cfg.Retrieval.SearchTopK,
		ChatTopK:       cfg.Retrieval.ChatTopK,
	}, searcher, extractor, analyzer, store, ledger, newChat)

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		return err
	case <-sig:
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
