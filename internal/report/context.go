// Package report assembles retrieval results into LLM context blocks
// and drives the analysis and chat flows built on top of them.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/retrieval"
)

// snippetLimit caps how much of a retrieved sample is quoted in the
// analysis context.
const snippetLimit = 500

// chatSnippetLimit is the tighter cap used for interactive chat turns.
const chatSnippetLimit = 300

// BuildContext renders the retrieval results and the target's extracted
// features as the markdown context block handed to the LLM. The format
// is deliberately stable; reports diff cleanly across runs when the
// retrieval results are unchanged.
func BuildContext(matches []retrieval.Match, features analysis.FeatureSet) string {
	var b strings.Builder
	b.WriteString("# Similar Malware Samples from Database:\n\n")

	for i, m := range matches {
		fmt.Fprintf(&b, "## Sample %d (Similarity: %.3f)\n", i+1, m.Score)
		fmt.Fprintf(&b, "Source: %s\n", orUnknown(m.Meta.File))
		fmt.Fprintf(&b, "```\n%s...\n```\n\n", truncate(m.Text, snippetLimit))
		if len(m.Meta.APICalls) > 0 {
			fmt.Fprintf(&b, "Suspicious APIs: %s\n", strings.Join(m.Meta.APICalls, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Extracted Features from Target Sample\n\n")
	fmt.Fprintf(&b, "**Suspicious API Calls:** %s\n", orNoneDetected(features.APICalls))
	fmt.Fprintf(&b, "**Network Operations:** %s\n", orNoneDetected(features.NetworkOps))
	fmt.Fprintf(&b, "**Cryptographic Operations:** %s\n", orNoneDetected(features.CryptoOps))

	return b.String()
}

// BuildChatContext renders the compact context block prepended to an
// interactive chat turn. Binary points often store no text, so the API
// list stands in for a snippet.
func BuildChatContext(matches []retrieval.Match) string {
	if len(matches) == 0 {
		return "No relevant information found in the database."
	}

	var b strings.Builder
	b.WriteString("\n--- Relevant Information from Malware Database ---\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "\nSource %d: %s (Similarity: %.2f)\n", i+1, orUnknown(m.Meta.File), m.Score)

		snippet := m.Text
		if snippet == "" {
			if len(m.Meta.APICalls) > 0 {
				snippet = "Suspicious APIs: " + strings.Join(m.Meta.APICalls, ", ")
			} else {
				snippet = "No code snippet available."
			}
		}
		fmt.Fprintf(&b, "```\n%s...\n```\n", truncate(snippet, chatSnippetLimit))
	}
	b.WriteString("---------------------------------------------\n")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNoneDetected(items []string) string {
	if len(items) == 0 {
		return "None detected"
	}
	return strings.Join(items, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never leaves an invalid
	// UTF-8 tail in the prompt.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
