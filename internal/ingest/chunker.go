// Package ingest turns corpus files into vector store points: source
// files are split into line chunks, documents into paragraphs, binaries
// into a single triage summary. The pipeline fans the work out over a
// bounded worker pool and records a per-file outcome for every sample.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/vxlab/malsift/internal/analysis"
)

// Chunk is a contiguous span of a source file's lines, the unit of
// indexing for code samples.
type Chunk struct {
	Text      string
	FilePath  string
	Index     int
	StartLine int // 0-based, inclusive.
	EndLine   int // 0-based; the final chunk ends at the line count.
	Language  string
	// ContentHash is the SHA-256 of the whole file, identical on every
	// chunk of the file. Used for dedup and integrity checks, not chunk
	// identity.
	ContentHash string
	Features    analysis.FeatureSet
}

// Chunker splits source files into chunks along heuristic function
// boundaries and a line-count cap. The boundary test is a literal
// substring scan, not a parser; malware sources mix languages too freely
// for anything stricter to pay off.
type Chunker struct {
	boundaryKeywords []string
	boundaryMinLines int
	maxLines         int
	extractor        *analysis.Extractor
}

// NewChunker builds a Chunker. A chunk closes when a line carries a
// boundary keyword and the buffer already exceeds boundaryMinLines, or
// unconditionally once the buffer reaches maxLines.
func NewChunker(boundaryKeywords []string, boundaryMinLines, maxLines int, extractor *analysis.Extractor) *Chunker {
	return &Chunker{
		boundaryKeywords: boundaryKeywords,
		boundaryMinLines: boundaryMinLines,
		maxLines:         maxLines,
		extractor:        extractor,
	}
}

// ChunkFile reads and chunks one source file. Invalid UTF-8 byte
// sequences are dropped rather than failing; samples are routinely
// half-binary. A read failure is returned to the caller, who records it
// as a per-file outcome and moves on.
func (c *Chunker) ChunkFile(path, relPath, language, contentHash string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relPath, err)
	}
	text := strings.ToValidUTF8(string(data), "")
	return c.ChunkText(relPath, language, contentHash, text), nil
}

// ChunkText splits already-decoded content into chunks. The chunks
// partition the content exactly: line ranges are contiguous and
// non-overlapping, and joining the chunk texts with single newlines
// reconstructs the input.
func (c *Chunker) ChunkText(relPath, language, contentHash, text string) []Chunk {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	var buffer []string
	startLine := 0

	emit := func(endLine int) {
		chunkText := strings.Join(buffer, "\n")
		chunks = append(chunks, Chunk{
			Text:        chunkText,
			FilePath:    relPath,
			Index:       len(chunks),
			StartLine:   startLine,
			EndLine:     endLine,
			Language:    language,
			ContentHash: contentHash,
			Features:    c.extractor.Extract(chunkText),
		})
		buffer = buffer[:0]
	}

	for i, line := range lines {
		buffer = append(buffer, line)
		if (c.isBoundary(line) && len(buffer) > c.boundaryMinLines) || len(buffer) >= c.maxLines {
			emit(i)
			startLine = i + 1
		}
	}
	if len(buffer) > 0 {
		emit(len(lines))
	}

	return chunks
}

// isBoundary reports whether a line looks like the start of a function.
// Literal substring semantics: "subtract" contains "sub " only if the
// space follows, and a match anywhere on the line counts.
func (c *Chunker) isBoundary(line string) bool {
	for _, kw := range c.boundaryKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
