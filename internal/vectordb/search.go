package vectordb

import (
	"fmt"
	"strings"
)

// FormatMatches renders search results as human-readable text for the
// terminal.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No matching samples found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d match(es):\n\n", len(matches)))

	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("--- Match %d (similarity: %.4f) ---\n", i+1, m.Similarity))

		meta := m.Document.Metadata
		if meta.File != "" {
			location := meta.File
			if meta.Type == PointTypeCode && meta.EndLine > 0 {
				location += fmt.Sprintf(":%d-%d", meta.StartLine, meta.EndLine)
			}
			sb.WriteString(fmt.Sprintf("File: %s\n", location))
		}

		if meta.Family != "" && meta.Family != "Unknown" {
			sb.WriteString(fmt.Sprintf("Family: %s\n", meta.Family))
		}
		if meta.Type != "" {
			sb.WriteString(fmt.Sprintf("Type: %s\n", meta.Type))
		}
		if meta.Language != "" {
			sb.WriteString(fmt.Sprintf("Language: %s\n", meta.Language))
		}
		if len(meta.APICalls) > 0 {
			sb.WriteString(fmt.Sprintf("Suspicious APIs: %s\n", strings.Join(meta.APICalls, ", ")))
		}
		if len(meta.SuspiciousTraits) > 0 {
			sb.WriteString(fmt.Sprintf("Traits: %s\n", strings.Join(meta.SuspiciousTraits, ", ")))
		}

		if m.Document.Content != "" {
			sb.WriteString("\n")
			sb.WriteString(snippet(m.Document.Content, 500))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// snippet truncates text to at most n bytes, marking the cut.
func snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
