package vectordb

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/vxlab/malsift/internal/embeddings"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text.
// Similar texts will produce similar vectors because shared characters
// contribute to the same positions in the vector.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	// Normalize
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

const (
	testCodeColl = "malware_code"
	testDocColl  = "malware_docs"
)

func newTestStore(t *testing.T, embedder embeddings.Embedder) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(map[string]embeddings.Embedder{
		testCodeColl: embedder,
		testDocColl:  embedder,
	})
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return store
}

func embedOne(t *testing.T, embedder embeddings.Embedder, text string) []float32 {
	t.Helper()
	vecs, err := embedder.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vecs[0]
}

func TestChromemStore_UpsertAndSearchVector(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store := newTestStore(t, embedder)

	docs := []Document{
		{
			ID:        "p1",
			Content:   "CreateRemoteThread WriteProcessMemory injection routine",
			Embedding: embedOne(t, embedder, "CreateRemoteThread WriteProcessMemory injection routine"),
			Metadata: PointMeta{
				File:       "samples/emotet/inject.c",
				ChunkIndex: 0,
				StartLine:  0,
				EndLine:    42,
				Language:   ".c",
				FileHash:   "abc123",
				Type:       PointTypeCode,
				Family:     "Emotet",
				Year:       2021,
				APICalls:   []string{"CreateRemoteThread", "WriteProcessMemory"},
			},
		},
		{
			ID:        "p2",
			Content:   "socket connect send beacon loop",
			Embedding: embedOne(t, embedder, "socket connect send beacon loop"),
			Metadata: PointMeta{
				File:       "samples/mirai/net.c",
				ChunkIndex: 0,
				Language:   ".c",
				FileHash:   "def456",
				Type:       PointTypeCode,
				Family:     "Mirai",
				NetworkOps: []string{"socket", "connect", "send"},
			},
		},
		{
			ID:        "p3",
			Content:   "ransom note dropped after encryption completes",
			Embedding: embedOne(t, embedder, "ransom note dropped after encryption completes"),
			Metadata: PointMeta{
				File:      "samples/ryuk/readme.txt",
				Paragraph: 2,
				FileHash:  "ghi789",
				Type:      PointTypeDoc,
				Family:    "Ryuk",
			},
		},
	}

	if err := store.Upsert(ctx, testCodeColl, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if count := store.Count(testCodeColl); count != 3 {
		t.Errorf("Count: got %d, want 3", count)
	}
	if count := store.Count(testDocColl); count != 0 {
		t.Errorf("doc collection should be empty, got %d", count)
	}

	query := embedOne(t, embedder, "remote thread process memory injection")
	matches, err := store.SearchVector(ctx, testCodeColl, query, 2, nil)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("SearchVector returned no matches")
	}
	if len(matches) > 2 {
		t.Errorf("SearchVector returned %d matches, expected at most 2", len(matches))
	}

	// Results must come back sorted by descending similarity.
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("matches not sorted: %f before %f", matches[i-1].Similarity, matches[i].Similarity)
		}
	}
}

func TestChromemStore_UpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(32)
	store := newTestStore(t, embedder)

	doc := Document{
		ID:        "same-id",
		Content:   "first version",
		Embedding: embedOne(t, embedder, "first version"),
		Metadata:  PointMeta{File: "a.c", Type: PointTypeCode},
	}
	if err := store.Upsert(ctx, testCodeColl, []Document{doc}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	doc.Content = "second version"
	doc.Embedding = embedOne(t, embedder, "second version")
	if err := store.Upsert(ctx, testCodeColl, []Document{doc}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if count := store.Count(testCodeColl); count != 1 {
		t.Errorf("re-upserting the same ID must not duplicate: count = %d", count)
	}
}

func TestChromemStore_SearchWithFilter(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store := newTestStore(t, embedder)

	docs := []Document{
		{
			ID:        "f1",
			Content:   "emotet loader stage one",
			Embedding: embedOne(t, embedder, "emotet loader stage one"),
			Metadata:  PointMeta{File: "e.c", Type: PointTypeCode, Family: "Emotet", Language: ".c"},
		},
		{
			ID:        "f2",
			Content:   "zeus banking hook",
			Embedding: embedOne(t, embedder, "zeus banking hook"),
			Metadata:  PointMeta{File: "z.c", Type: PointTypeCode, Family: "Zeus", Language: ".c"},
		},
	}
	if err := store.Upsert(ctx, testCodeColl, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	family := "Zeus"
	query := embedOne(t, embedder, "loader stage")
	matches, err := store.SearchVector(ctx, testCodeColl, query, 10, &Filter{Family: &family})
	if err != nil {
		t.Fatalf("SearchVector with filter: %v", err)
	}

	if len(matches) == 0 {
		t.Fatal("expected at least one filtered match")
	}
	for _, m := range matches {
		if m.Document.Metadata.Family != "Zeus" {
			t.Errorf("expected family Zeus, got %s", m.Document.Metadata.Family)
		}
	}
}

func TestChromemStore_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(16)
	store := newTestStore(t, embedder)

	err := store.Upsert(ctx, "nope", []Document{{ID: "x", Embedding: embedOne(t, embedder, "x")}})
	if err == nil {
		t.Error("Upsert into unknown collection must fail")
	}
	if _, err := store.SearchVector(ctx, "nope", embedOne(t, embedder, "x"), 1, nil); err == nil {
		t.Error("SearchVector on unknown collection must fail")
	}
}

func TestChromemStore_DeleteByFile(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store := newTestStore(t, embedder)

	docs := []Document{
		{
			ID:        "d1",
			Content:   "first chunk",
			Embedding: embedOne(t, embedder, "first chunk"),
			Metadata:  PointMeta{File: "samples/a.c", Type: PointTypeCode},
		},
		{
			ID:        "d2",
			Content:   "second chunk",
			Embedding: embedOne(t, embedder, "second chunk"),
			Metadata:  PointMeta{File: "samples/a.c", ChunkIndex: 1, Type: PointTypeCode},
		},
		{
			ID:        "d3",
			Content:   "other file",
			Embedding: embedOne(t, embedder, "other file"),
			Metadata:  PointMeta{File: "samples/b.c", Type: PointTypeCode},
		},
	}
	if err := store.Upsert(ctx, testCodeColl, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.DeleteByFile(ctx, testCodeColl, "samples/a.c"); err != nil {
		t.Fatalf("DeleteByFile: %v", err)
	}

	if count := store.Count(testCodeColl); count != 1 {
		t.Errorf("Count after delete: got %d, want 1", count)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)
	store := newTestStore(t, embedder)

	docs := []Document{
		{
			ID:        "persist1",
			Content:   "VirtualAllocEx then WriteProcessMemory then CreateRemoteThread",
			Embedding: embedOne(t, embedder, "VirtualAllocEx then WriteProcessMemory then CreateRemoteThread"),
			Metadata: PointMeta{
				File:       "samples/trickbot/inj.c",
				StartLine:  5,
				EndLine:    25,
				FileHash:   "hash1",
				Type:       PointTypeCode,
				Family:     "Trickbot",
				Year:       2019,
				APICalls:   []string{"VirtualAllocEx", "WriteProcessMemory", "CreateRemoteThread"},
				CryptoOps:  []string{"encrypt"},
				NetworkOps: []string{"http"},
			},
		},
	}
	if err := store.Upsert(ctx, testCodeColl, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	tmpDir, err := os.MkdirTemp("", "chromem-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := store.Persist(ctx, tmpDir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	store2 := newTestStore(t, embedder)
	if err := store2.Load(ctx, tmpDir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if count := store2.Count(testCodeColl); count != 1 {
		t.Errorf("Count after load: got %d, want 1", count)
	}

	query := embedOne(t, embedder, "remote thread injection")
	matches, err := store2.SearchVector(ctx, testCodeColl, query, 1, nil)
	if err != nil {
		t.Fatalf("SearchVector after load: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("SearchVector after load returned %d matches, want 1", len(matches))
	}

	meta := matches[0].Document.Metadata
	if meta.Family != "Trickbot" {
		t.Errorf("family: got %q, want Trickbot", meta.Family)
	}
	if meta.Year != 2019 {
		t.Errorf("year: got %d, want 2019", meta.Year)
	}
	if len(meta.APICalls) != 3 || meta.APICalls[0] != "VirtualAllocEx" {
		t.Errorf("api_calls did not round-trip: %v", meta.APICalls)
	}
	if len(meta.NetworkOps) != 1 || meta.NetworkOps[0] != "http" {
		t.Errorf("network_operations did not round-trip: %v", meta.NetworkOps)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := PointMeta{
		File:             "samples/x.exe",
		Type:             PointTypeBinary,
		Family:           "Lockbit",
		Year:             2022,
		Imports:          []string{"kernel32.dll::CreateRemoteThread", "wininet.dll::InternetOpenA"},
		Exports:          []string{"ServiceMain"},
		SuspiciousTraits: []string{"High entropy section: .text (7.43)"},
	}

	got := mapToMetadata(metadataToMap(meta))

	if got.File != meta.File || got.Type != meta.Type || got.Family != meta.Family || got.Year != meta.Year {
		t.Errorf("scalar fields did not round-trip: %+v", got)
	}
	if len(got.Imports) != 2 || got.Imports[1] != "wininet.dll::InternetOpenA" {
		t.Errorf("imports did not round-trip: %v", got.Imports)
	}
	if len(got.SuspiciousTraits) != 1 || got.SuspiciousTraits[0] != meta.SuspiciousTraits[0] {
		t.Errorf("traits did not round-trip: %v", got.SuspiciousTraits)
	}
	if got.APICalls != nil {
		t.Errorf("empty list should decode as nil, got %v", got.APICalls)
	}
}

func TestFormatMatches(t *testing.T) {
	matches := []Match{
		{
			Document: Document{
				ID:      "r1",
				Content: "void inject(void) { /* ... */ }",
				Metadata: PointMeta{
					File:      "samples/emotet/inject.c",
					StartLine: 10,
					EndLine:   20,
					Type:      PointTypeCode,
					Family:    "Emotet",
					Language:  ".c",
					APICalls:  []string{"CreateRemoteThread"},
				},
			},
			Similarity: 0.9512,
		},
	}

	output := FormatMatches(matches)
	if output == "" {
		t.Fatal("FormatMatches returned empty string")
	}
	if !strings.Contains(output, "samples/emotet/inject.c:10-20") {
		t.Errorf("expected file location in output, got: %s", output)
	}
	if !strings.Contains(output, "0.9512") {
		t.Errorf("expected similarity score in output, got: %s", output)
	}
	if !strings.Contains(output, "CreateRemoteThread") {
		t.Errorf("expected API list in output, got: %s", output)
	}
}

func TestFormatMatches_Empty(t *testing.T) {
	output := FormatMatches(nil)
	if output != "No matching samples found." {
		t.Errorf("expected empty-state message, got: %s", output)
	}
}
