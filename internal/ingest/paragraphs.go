package ingest

import "strings"

// Paragraph is one blank-line-delimited block of a document file.
type Paragraph struct {
	Text  string
	Index int
}

// SplitParagraphs splits document content on blank-line boundaries.
// Whitespace-only blocks are dropped; the index counts surviving
// paragraphs, so it is dense. Analyst notes and triage reports read much
// better retrieved a paragraph at a time than as line chunks.
func SplitParagraphs(text string) []Paragraph {
	blocks := strings.Split(text, "\n\n")

	var paragraphs []Paragraph
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		paragraphs = append(paragraphs, Paragraph{
			Text:  trimmed,
			Index: len(paragraphs),
		})
	}
	return paragraphs
}
