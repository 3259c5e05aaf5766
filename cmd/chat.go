package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/vxlab/malsift/internal/report"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive analysis chat grounded in the corpus",
	Long: `Starts an interactive session with the configured LLM. Each question
retrieves matching samples from the corpus and hands them to the model
as context. Type "exit" or "quit" to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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
	provider, err := newLLMProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	session := &report.Chat{
		Searcher:    newCodeSearcher(cfg, codeEmb, store),
		Provider:    provider,
		Model:       cfg.Model,
		Temperature: float64(cfg.ChatTemperature),
		ContextSize: cfg.ContextSize,
		TopK:        cfg.Retrieval.ChatTopK,
	}

	fmt.Printf("malsift chat (%s via %s). Type 'exit' to quit.\n\n", cfg.Model, cfg.Provider)

	prompt := promptui.Prompt{
		Label:       "you",
		AllowEdit:   true,
		HideEntered: false,
	}

	for {
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		answer := session.Turn(ctx, input)
		fmt.Printf("\n%s\n\n", answer)
	}
}
