package report

import (
	"context"
	"fmt"

	"github.com/vxlab/malsift/internal/llm"
	"github.com/vxlab/malsift/internal/retrieval"
)

// Chat is one interactive analyst session. Each turn retrieves corpus
// context for the user's input and keeps the full conversation history.
// Not safe for concurrent use; one session belongs to one caller.
type Chat struct {
	Searcher *retrieval.Searcher
	Provider llm.Provider

	Model       string
	Temperature float64
	ContextSize int
	TopK        int

	history []llm.Message
}

// Turn runs one chat exchange. Retrieval failure degrades to an
// ungrounded turn rather than killing the session; an LLM failure is
// returned as a descriptive reply for the same reason. The turn only
// enters the history once the model actually answered.
func (c *Chat) Turn(ctx context.Context, input string) string {
	content := input

	matches, err := c.Searcher.Hybrid(ctx, input, c.TopK)
	if err != nil {
		content = fmt.Sprintf("%s\n\n(Note: corpus lookup failed: %v)", input, err)
	} else {
		content = fmt.Sprintf("%s\n%s", input, BuildChatContext(matches))
	}

	messages := make([]llm.Message, 0, len(c.history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	messages = append(messages, c.history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})

	resp, err := c.Provider.Complete(ctx, llm.CompletionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		ContextSize: c.ContextSize,
	})
	if err != nil {
		return fmt.Sprintf("Error communicating with LLM: %v", err)
	}

	c.history = append(c.history,
		llm.Message{Role: llm.RoleUser, Content: content},
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
	)
	return resp.Content
}

// HistoryLen reports how many messages the session has accumulated.
func (c *Chat) HistoryLen() int { return len(c.history) }
