package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/config"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/retrieval"
	"github.com/vxlab/malsift/internal/vectordb"
)

// mockEmbedder implements embeddings.Embedder for testing.
type mockEmbedder struct{}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1, 0, 0}
	}
	return result, nil
}
func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Name() string    { return "mock" }

// mockStore implements vectordb.Store for testing.
type mockStore struct {
	matches []vectordb.Match
	counts  map[string]int
}

func (m *mockStore) Upsert(_ context.Context, _ string, _ []vectordb.Document) error { return nil }

func (m *mockStore) SearchVector(_ context.Context, _ string, _ []float32, limit int, _ *vectordb.Filter) ([]vectordb.Match, error) {
	if limit < len(m.matches) {
		return m.matches[:limit], nil
	}
	return m.matches, nil
}

func (m *mockStore) DeleteByFile(_ context.Context, _, _ string) error { return nil }
func (m *mockStore) Count(collection string) int                      { return m.counts[collection] }
func (m *mockStore) Persist(_ context.Context, _ string) error        { return nil }
func (m *mockStore) Load(_ context.Context, _ string) error           { return nil }

func newTestMCPServer(t *testing.T, store *mockStore) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	extractor := analysis.NewExtractor(
		cfg.Signatures.SuspiciousAPIs,
		cfg.Signatures.NetworkPatterns,
		cfg.Signatures.CryptoPatterns,
	)
	router := analysis.NewRouter(cfg.Signatures.RouterRules)
	searcher := retrieval.NewSearcher(&mockEmbedder{}, store, extractor, "malware_code", 0.1)

	ledger, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	return NewServer(Config{
		CodeCollection: "malware_code",
		TextCollection: "malware_docs",
		SearchTopK:     20,
	}, searcher, extractor, router, store, ledger)
}

func corpusMatch(file, content string, sim float32, apis, traits []string) vectordb.Match {
	return vectordb.Match{
		Document: vectordb.Document{
			Content: content,
			Metadata: vectordb.PointMeta{
				File:             file,
				Family:           "Zeus",
				Type:             vectordb.PointTypeCode,
				StartLine:        1,
				EndLine:          20,
				Language:         "c",
				APICalls:         apis,
				SuspiciousTraits: traits,
			},
		},
		Similarity: sim,
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_corpus", searchCorpusTool, "search_corpus"},
		{"extract_features", extractFeaturesTool, "extract_features"},
		{"generate_yara", generateYaraTool, "generate_yara"},
		{"corpus_stats", corpusStatsTool, "corpus_stats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestHandleSearchCorpus(t *testing.T) {
	store := &mockStore{
		matches: []vectordb.Match{
			corpusMatch("zeus/inject.c", "CreateRemoteThread injection", 0.9,
				[]string{"CreateRemoteThread"}, nil),
			corpusMatch("zeus/persist.c", "RegSetValueEx run key", 0.8,
				[]string{"RegSetValueEx"}, nil),
		},
	}
	srv := newTestMCPServer(t, store)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "process injection"}

		result, err := srv.handleSearchCorpus(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		for _, want := range []string{"Found 2 result(s)", "zeus/inject.c:1-20", "Family: Zeus", "CreateRemoteThread"} {
			if !strings.Contains(text, want) {
				t.Errorf("result missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchCorpus(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty corpus", func(t *testing.T) {
		emptySrv := newTestMCPServer(t, &mockStore{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, err := emptySrv.handleSearchCorpus(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("empty results should not be an error")
		}
		if !strings.Contains(resultText(t, result), "malsift ingest") {
			t.Error("empty result should point at the ingest command")
		}
	})
}

func TestHandleExtractFeatures(t *testing.T) {
	srv := newTestMCPServer(t, &mockStore{})
	ctx := context.Background()

	t.Run("indicators found", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"code": "VirtualAlloc(NULL, n); connect(sock, addr, len); AES_encrypt(in, out, key);",
		}

		result, err := srv.handleExtractFeatures(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		for _, want := range []string{"Suspicious API calls", "Network operations", "Cryptographic operations"} {
			if !strings.Contains(text, want) {
				t.Errorf("result missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("clean code", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"code": "int add(int a, int b) { return a + b; }"}

		result, err := srv.handleExtractFeatures(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(resultText(t, result), "No suspicious indicators") {
			t.Error("expected no-indicators message for clean code")
		}
	})

	t.Run("missing code", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleExtractFeatures(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing code")
		}
	})
}

func TestHandleGenerateYara(t *testing.T) {
	ctx := context.Background()

	t.Run("rule from matches", func(t *testing.T) {
		store := &mockStore{
			matches: []vectordb.Match{
				corpusMatch("a.c", "aaa", 0.9,
					[]string{"CreateRemoteThread", "VirtualAllocEx"}, []string{"cmd.exe /c"}),
				corpusMatch("b.c", "bbb", 0.8,
					[]string{"CreateRemoteThread"}, []string{"cmd.exe /c"}),
			},
		}
		srv := newTestMCPServer(t, store)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"code": "CreateRemoteThread(hProc, addr); encrypt files and demand ransom"}

		result, err := srv.handleGenerateYara(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		for _, want := range []string{"rule ", "CreateRemoteThread", "cmd.exe /c", "uint16(0) == 0x5A4D"} {
			if !strings.Contains(text, want) {
				t.Errorf("rule missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("too few matches", func(t *testing.T) {
		store := &mockStore{
			matches: []vectordb.Match{
				corpusMatch("a.c", "aaa", 0.9, []string{"VirtualAlloc"}, nil),
			},
		}
		srv := newTestMCPServer(t, store)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"code": "some code"}

		result, err := srv.handleGenerateYara(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error with fewer than 2 matches")
		}
	})
}

func TestHandleCorpusStats(t *testing.T) {
	store := &mockStore{counts: map[string]int{"malware_code": 42, "malware_docs": 7}}
	srv := newTestMCPServer(t, store)

	if _, err := srv.ledger.BeginRun("/corpus", 10); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := srv.handleCorpusStats(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"Code points: 42", "Document points: 7", "/corpus"} {
		if !strings.Contains(text, want) {
			t.Errorf("stats missing %q:\n%s", want, text)
		}
	}
}

// resultText extracts the text payload of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
