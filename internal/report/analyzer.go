package report

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/llm"
	"github.com/vxlab/malsift/internal/retrieval"
)

// Analyzer runs the full analysis flow: classify, retrieve, extract,
// optionally generate a YARA rule, then ask the LLM for the report.
type Analyzer struct {
	Searcher  *retrieval.Searcher
	Extractor *analysis.Extractor
	Router    *analysis.Router
	Provider  llm.Provider
	Ledger    *db.DB // optional; nil disables history recording

	Model       string
	Temperature float64
	ContextSize int
	TopK        int
}

// Report is the outcome of analyzing one sample.
type Report struct {
	Category string
	Family   string
	Features analysis.FeatureSet
	Matches  []retrieval.Match
	YaraRule string
	Content  string
	Duration time.Duration
}

// Analyze produces a report for the given suspicious code. Retrieval
// failures propagate as errors: without the corpus there is nothing to
// ground the report on. An LLM transport failure does NOT: this sits on
// a human-facing path, so the failure is described inside the report
// instead of crashing the flow.
func (a *Analyzer) Analyze(ctx context.Context, source, code string) (*Report, error) {
	start := time.Now()

	category := a.Router.Classify(code)

	matches, err := a.Searcher.Hybrid(ctx, code, a.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieving similar samples: %w", err)
	}

	features := a.Extractor.Extract(code)

	var yaraRule string
	if len(matches) >= 2 {
		yaraRule = analysis.GenerateYaraRule(category, ruleSamples(matches))
	}

	contextBlock := BuildContext(matches, features)
	if yaraRule != "" {
		contextBlock += fmt.Sprintf("\n## Auto-Generated YARA Rule\n```yara\n%s\n```", yaraRule)
	}

	userPrompt := fmt.Sprintf("# Code to Analyze:\n```\n%s\n```\n\n%s\n\nProvide a comprehensive malware analysis based on the code and the similar samples from our database.", code, contextBlock)

	resp, err := a.Provider.Complete(ctx, llm.CompletionRequest{
		Model: a.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analysisSystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		Temperature: a.Temperature,
		ContextSize: a.ContextSize,
	})

	var content string
	if err != nil {
		content = fmt.Sprintf("Error communicating with LLM: %v", err)
	} else {
		content = resp.Content
	}

	report := &Report{
		Category: category,
		Family:   dominantFamily(matches),
		Features: features,
		Matches:  matches,
		YaraRule: yaraRule,
		Content:  content,
		Duration: time.Since(start),
	}

	if a.Ledger != nil {
		_, recErr := a.Ledger.RecordAnalysis(db.AnalysisRecord{
			Source:   source,
			Category: report.Category,
			Family:   report.Family,
			Model:    a.Model,
			Matches:  len(matches),
			Duration: report.Duration,
			Report:   content,
		})
		if recErr != nil {
			return nil, fmt.Errorf("recording analysis: %w", recErr)
		}
	}

	return report, nil
}

// AnalyzeBatch analyzes multiple samples and writes one markdown report
// per sample into outDir. A failing sample is reported on stderr and
// skipped; the batch continues.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, samples []string, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports directory: %w", err)
	}

	var written []string
	for i, code := range samples {
		report, err := a.Analyze(ctx, fmt.Sprintf("batch sample %d", i+1), code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample %d: %v\n", i+1, err)
			continue
		}

		name := fmt.Sprintf("report_%d_%04x.md", i+1, contentTag(code))
		path := filepath.Join(outDir, name)
		body := fmt.Sprintf("# Malware Analysis Report - Sample %d\n\n%s", i+1, report.Content)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "sample %d: writing report: %v\n", i+1, err)
			continue
		}
		written = append(written, path)
	}
	return written, nil
}

// contentTag derives the 16-bit suffix used in batch report file names.
func contentTag(code string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(code))
	return h.Sum32() & 0xFFFF
}

// ruleSamples converts retrieval matches into the indicator clusters the
// YARA generator consumes.
func ruleSamples(matches []retrieval.Match) []analysis.RuleSample {
	samples := make([]analysis.RuleSample, len(matches))
	for i, m := range matches {
		samples[i] = analysis.RuleSample{
			APICalls: m.Meta.APICalls,
			Strings:  m.Meta.SuspiciousTraits,
		}
	}
	return samples
}

// dominantFamily picks the most common known family among the matches,
// first seen winning ties. All-unknown match sets stay "Unknown".
func dominantFamily(matches []retrieval.Match) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range matches {
		f := m.Meta.Family
		if f == "" || f == "Unknown" {
			continue
		}
		if _, seen := counts[f]; !seen {
			order = append(order, f)
		}
		counts[f]++
	}

	best := "Unknown"
	bestCount := 0
	for _, f := range order {
		if counts[f] > bestCount {
			best = f
			bestCount = counts[f]
		}
	}
	return best
}
