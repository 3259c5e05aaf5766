package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/retrieval"
	"github.com/vxlab/malsift/internal/vectordb"
)

// handleSearchCorpus runs hybrid search over the code collection.
func (s *Server) handleSearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", s.cfg.SearchTopK)
	if limit <= 0 {
		limit = s.cfg.SearchTopK
	}

	var matches []retrieval.Match
	if family := request.GetString("family", ""); family != "" {
		matches, err = s.searcher.Dense(ctx, query, limit, &vectordb.Filter{Family: &family})
	} else {
		matches, err = s.searcher.Hybrid(ctx, query, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return mcp.NewToolResultText("No results found. The corpus may not be ingested yet. Run `malsift ingest` to index it."), nil
	}

	return mcp.NewToolResultText(formatMatches(matches)), nil
}

// handleExtractFeatures scans the given code for configured indicators.
func (s *Server) handleExtractFeatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}

	features := s.extractor.Extract(code)
	if features.Empty() {
		return mcp.NewToolResultText("No suspicious indicators detected."), nil
	}

	var sb strings.Builder
	writeList := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&sb, "%s: %s\n", label, strings.Join(items, ", "))
		}
	}
	writeList("Suspicious API calls", features.APICalls)
	writeList("Network operations", features.NetworkOps)
	writeList("Cryptographic operations", features.CryptoOps)

	return mcp.NewToolResultText(sb.String()), nil
}

// handleGenerateYara classifies the sample, retrieves its nearest
// corpus matches and derives a rule from their shared indicators.
func (s *Server) handleGenerateYara(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}

	matches, err := s.searcher.Hybrid(ctx, code, s.cfg.SearchTopK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) < 2 {
		return mcp.NewToolResultError("not enough similar samples in the corpus to derive a rule (need at least 2)"), nil
	}

	category := s.router.Classify(code)
	samples := make([]analysis.RuleSample, len(matches))
	for i, m := range matches {
		samples[i] = analysis.RuleSample{
			APICalls: m.Meta.APICalls,
			Strings:  m.Meta.SuspiciousTraits,
		}
	}

	rule := analysis.GenerateYaraRule(category, samples)
	return mcp.NewToolResultText(rule), nil
}

// handleCorpusStats reports collection sizes and ledger history.
func (s *Server) handleCorpusStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Code points: %d\n", s.store.Count(s.cfg.CodeCollection))
	fmt.Fprintf(&sb, "Document points: %d\n", s.store.Count(s.cfg.TextCollection))

	if s.ledger != nil {
		run, err := s.ledger.LastRun()
		if err == nil && run != nil {
			fmt.Fprintf(&sb, "\nLast ingest run (%s):\n", run.CorpusRoot)
			fmt.Fprintf(&sb, "  files: %d total, %d ingested, %d failed\n",
				run.FilesTotal, run.FilesIngested, run.FilesFailed)
			fmt.Fprintf(&sb, "  points upserted: %d\n", run.PointsUpserted)
		}

		analyses, err := s.ledger.RecentAnalyses(5)
		if err == nil && len(analyses) > 0 {
			sb.WriteString("\nRecent analyses:\n")
			for _, a := range analyses {
				fmt.Fprintf(&sb, "  %s: %s / %s (%s, %d matches)\n",
					a.Source, a.Category, a.Family, a.Model, a.Matches)
			}
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// formatMatches renders hybrid search results as text for agent
// consumption.
func formatMatches(matches []retrieval.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n", len(matches))

	for i, m := range matches {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)

		if m.Meta.File != "" {
			location := m.Meta.File
			if m.Meta.StartLine > 0 {
				location += fmt.Sprintf(":%d", m.Meta.StartLine)
				if m.Meta.EndLine > m.Meta.StartLine {
					location += fmt.Sprintf("-%d", m.Meta.EndLine)
				}
			}
			fmt.Fprintf(&sb, "File: %s\n", location)
		}
		if m.Meta.Family != "" {
			fmt.Fprintf(&sb, "Family: %s\n", m.Meta.Family)
		}
		if m.Meta.Type != "" {
			fmt.Fprintf(&sb, "Type: %s\n", m.Meta.Type)
		}
		if m.Meta.Language != "" {
			fmt.Fprintf(&sb, "Language: %s\n", m.Meta.Language)
		}
		fmt.Fprintf(&sb, "Score: %.3f\n", m.Score)
		if len(m.Meta.APICalls) > 0 {
			fmt.Fprintf(&sb, "Suspicious APIs: %s\n", strings.Join(m.Meta.APICalls, ", "))
		}

		if m.Text != "" {
			sb.WriteString("\n")
			sb.WriteString(m.Text)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
