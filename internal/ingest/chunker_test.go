package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/config"
)

func newTestChunker() *Chunker {
	extractor := analysis.NewExtractor(
		config.DefaultSuspiciousAPIs,
		config.DefaultNetworkPatterns,
		config.DefaultCryptoPatterns,
	)
	return NewChunker(config.DefaultBoundaryKeywords, 10, 50, extractor)
}

func TestChunkTextEmptyFile(t *testing.T) {
	c := newTestChunker()
	chunks := c.ChunkText("empty.c", "c", "hash", "")
	if len(chunks) != 0 {
		t.Errorf("expected zero chunks for empty file, got %d", len(chunks))
	}
}

func TestChunkTextShortFile(t *testing.T) {
	c := newTestChunker()
	content := "int x = 1;\nint y = 2;\nint z = 3;"
	chunks := c.ChunkText("short.c", "c", "hash", content)

	if len(chunks) != 1 {
		t.Fatalf("expected one chunk for short file, got %d", len(chunks))
	}
	if chunks[0].Text != content {
		t.Errorf("chunk text differs from file content")
	}
	if chunks[0].StartLine != 0 {
		t.Errorf("StartLine = %d, want 0", chunks[0].StartLine)
	}
	// The final chunk ends one past the last line index.
	if chunks[0].EndLine != 3 {
		t.Errorf("EndLine = %d, want 3", chunks[0].EndLine)
	}
}

func TestChunkTextPartitionsContent(t *testing.T) {
	c := newTestChunker()

	// 130 lines with scattered function boundaries.
	var lines []string
	for i := 0; i < 130; i++ {
		if i%37 == 0 {
			lines = append(lines, fmt.Sprintf("void handler_%d() {", i))
		} else {
			lines = append(lines, fmt.Sprintf("    stmt_%d;", i))
		}
	}
	content := strings.Join(lines, "\n")

	chunks := c.ChunkText("big.c", "c", "hash", content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Joining chunk texts with single newlines reconstructs the file.
	var texts []string
	for _, ch := range chunks {
		texts = append(texts, ch.Text)
	}
	if got := strings.Join(texts, "\n"); got != content {
		t.Error("joined chunk texts do not reconstruct the original content")
	}

	// Line ranges are contiguous, non-overlapping and exhaustive.
	next := 0
	for i, ch := range chunks {
		if ch.StartLine != next {
			t.Errorf("chunk %d: StartLine = %d, want %d", i, ch.StartLine, next)
		}
		if ch.Index != i {
			t.Errorf("chunk %d: Index = %d", i, ch.Index)
		}
		next = ch.EndLine + 1
	}
	if chunks[len(chunks)-1].EndLine != len(lines) {
		// Non-final chunks end at the emitting line; the final chunk
		// ends at the line count.
		last := chunks[len(chunks)-1]
		if last.EndLine < last.StartLine {
			t.Errorf("final chunk range inverted: %d..%d", last.StartLine, last.EndLine)
		}
	}
}

func TestChunkTextBoundaryEmission(t *testing.T) {
	c := newTestChunker()

	// Lines 0..10 are plain statements; line 11 carries a boundary
	// keyword with 12 lines buffered (> 10), so a chunk closes there.
	var lines []string
	for i := 0; i < 11; i++ {
		lines = append(lines, fmt.Sprintf("x = %d", i))
	}
	lines = append(lines, "def decrypt_payload():")
	lines = append(lines, "    pass")
	content := strings.Join(lines, "\n")

	chunks := c.ChunkText("sample.py", "py", "hash", content)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].EndLine != 11 {
		t.Errorf("first chunk EndLine = %d, want 11", chunks[0].EndLine)
	}
	if chunks[1].StartLine != 12 {
		t.Errorf("second chunk StartLine = %d, want 12", chunks[1].StartLine)
	}
	if chunks[1].EndLine != len(lines) {
		t.Errorf("final chunk EndLine = %d, want %d", chunks[1].EndLine, len(lines))
	}
}

func TestChunkTextBoundaryNeedsMinBuffer(t *testing.T) {
	c := newTestChunker()

	// Boundary keyword on line 2 with only 3 lines buffered: no split.
	content := "x = 1\ny = 2\ndef main():\n    pass"
	chunks := c.ChunkText("tiny.py", "py", "hash", content)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk when buffer is below the boundary minimum, got %d", len(chunks))
	}
}

func TestChunkTextMaxLinesCap(t *testing.T) {
	c := newTestChunker()

	var lines []string
	for i := 0; i < 120; i++ {
		lines = append(lines, fmt.Sprintf("mov eax, %d", i))
	}
	chunks := c.ChunkText("loader.asm", "asm", "hash", strings.Join(lines, "\n"))

	// 120 boundary-free lines split at the 50-line cap: 50 + 50 + 20.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if got := len(strings.Split(chunks[0].Text, "\n")); got != 50 {
		t.Errorf("first chunk has %d lines, want 50", got)
	}
	if got := len(strings.Split(chunks[2].Text, "\n")); got != 20 {
		t.Errorf("last chunk has %d lines, want 20", got)
	}
}

func TestChunkTextExtractsFeaturesPerChunk(t *testing.T) {
	c := newTestChunker()

	var lines []string
	for i := 0; i < 49; i++ {
		lines = append(lines, "nop")
	}
	lines = append(lines, "call OpenProcess")
	for i := 0; i < 10; i++ {
		lines = append(lines, "socket(AF_INET)")
	}
	chunks := c.ChunkText("inject.c", "c", "hash", strings.Join(lines, "\n"))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Features.APICalls) != 1 || chunks[0].Features.APICalls[0] != "OpenProcess" {
		t.Errorf("first chunk APICalls = %v, want [OpenProcess]", chunks[0].Features.APICalls)
	}
	if len(chunks[0].Features.NetworkOps) != 0 {
		t.Errorf("first chunk NetworkOps = %v, want none", chunks[0].Features.NetworkOps)
	}
	if len(chunks[1].Features.NetworkOps) == 0 {
		t.Errorf("second chunk should carry network features, got none")
	}
}

func TestChunkFileDropsInvalidUTF8(t *testing.T) {
	c := newTestChunker()

	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.c")
	content := append([]byte("int main() {\n"), 0xff, 0xfe)
	content = append(content, []byte("\nreturn 0;\n}")...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	chunks, err := c.ChunkFile(path, "mixed.c", "c", "hash")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks despite invalid bytes")
	}
	for _, ch := range chunks {
		if strings.ContainsRune(ch.Text, 0xFFFD) || strings.Contains(ch.Text, "\xff") {
			t.Errorf("invalid bytes leaked into chunk text: %q", ch.Text)
		}
	}
}

func TestChunkFileMissingFile(t *testing.T) {
	c := newTestChunker()
	_, err := c.ChunkFile(filepath.Join(t.TempDir(), "gone.c"), "gone.c", "c", "hash")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestChunkFileCarriesSharedHash(t *testing.T) {
	c := newTestChunker()

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.py")
	var lines []string
	for i := 0; i < 120; i++ {
		lines = append(lines, "pass")
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	chunks, err := c.ChunkFile(path, "sample.py", "py", "wholefilehash")
	if err != nil {
		t.Fatalf("ChunkFile: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ContentHash != "wholefilehash" {
			t.Errorf("chunk %d hash = %q, want the whole-file hash", i, ch.ContentHash)
		}
	}
}
