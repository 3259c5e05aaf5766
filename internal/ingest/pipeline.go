package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/corpus"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/embeddings"
	"github.com/vxlab/malsift/internal/vectordb"
)

// ProgressFunc is called after each file finishes processing.
type ProgressFunc func(current, total int, path string)

// Pipeline ingests corpus files into the vector store. Files are
// processed concurrently; each worker owns its own buffers, and nothing
// is shared across files except the collected documents behind a mutex.
type Pipeline struct {
	Chunker   *Chunker
	Extractor *analysis.Extractor

	CodeEmbedder embeddings.Embedder
	TextEmbedder embeddings.Embedder
	Store        vectordb.Store
	Ledger       *db.DB // optional; nil disables outcome recording

	CodeCollection string
	TextCollection string

	Concurrency int
	BatchSize   int
	OnProgress  ProgressFunc
}

// Result summarizes one ingest run.
type Result struct {
	RunID    int64
	Outcomes []db.FileOutcome
	Ingested int
	Skipped  int
	Failed   int
	Pruned   int
	Points   int
}

// fileDocs pairs the outcome of one file with the documents it produced,
// keyed by target collection.
type fileDocs struct {
	outcome db.FileOutcome
	docs    map[string][]vectordb.Document
}

// Run processes all files and upserts the resulting points in batches.
// One bad file never aborts the run: its failure is recorded as an
// outcome and the batch continues. A store or ledger failure does abort,
// since nothing useful can be recorded past it.
func (p *Pipeline) Run(ctx context.Context, corpusRoot string, files []corpus.FileInfo) (*Result, error) {
	result := &Result{}
	total := len(files)

	if p.Ledger != nil {
		runID, err := p.Ledger.BeginRun(corpusRoot, total)
		if err != nil {
			return nil, err
		}
		result.RunID = runID
	}

	pruned, err := p.pruneVanished(ctx, result.RunID, files)
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned

	if total == 0 {
		if p.Ledger != nil {
			if err := p.Ledger.FinishRun(result.RunID, 0, 0, 0); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	perFile := make([]fileDocs, total)
	sem := make(chan struct{}, concurrency)
	var processed int64
	var wg sync.WaitGroup

	for i, file := range files {
		select {
		case <-ctx.Done():
			perFile[i] = fileDocs{outcome: db.FileOutcome{
				Path:   file.RelPath,
				Kind:   string(file.Kind),
				Status: db.StatusFailed,
				Error:  ctx.Err().Error(),
			}}
			count := atomic.AddInt64(&processed, 1)
			if p.OnProgress != nil {
				p.OnProgress(int(count), total, file.RelPath)
			}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, f corpus.FileInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			perFile[idx] = p.processFile(ctx, f)

			count := atomic.AddInt64(&processed, 1)
			if p.OnProgress != nil {
				p.OnProgress(int(count), total, f.RelPath)
			}
		}(i, file)
	}
	wg.Wait()

	// Collect documents per collection, preserving file order.
	byCollection := make(map[string][]vectordb.Document)
	for _, fd := range perFile {
		result.Outcomes = append(result.Outcomes, fd.outcome)
		switch fd.outcome.Status {
		case db.StatusIngested:
			result.Ingested++
		case db.StatusSkipped:
			result.Skipped++
		case db.StatusFailed:
			result.Failed++
		}
		for coll, docs := range fd.docs {
			byCollection[coll] = append(byCollection[coll], docs...)
			result.Points += len(docs)
		}
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	for coll, docs := range byCollection {
		for start := 0; start < len(docs); start += batchSize {
			end := start + batchSize
			if end > len(docs) {
				end = len(docs)
			}
			if err := p.Store.Upsert(ctx, coll, docs[start:end]); err != nil {
				return nil, fmt.Errorf("upserting batch into %s: %w", coll, err)
			}
		}
	}

	if p.Ledger != nil {
		for _, o := range result.Outcomes {
			if err := p.Ledger.RecordFile(result.RunID, o); err != nil {
				return nil, err
			}
		}
		if err := p.Ledger.FinishRun(result.RunID, result.Ingested, result.Failed, result.Points); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// pruneVanished drops points for files that earlier runs ingested but
// the current walk no longer sees. Without it, deleted samples keep
// surfacing in search results forever. Requires the ledger; with no
// record of past ingests there is nothing to compare against.
func (p *Pipeline) pruneVanished(ctx context.Context, runID int64, files []corpus.FileInfo) (int, error) {
	if p.Ledger == nil {
		return 0, nil
	}
	known, err := p.Ledger.IngestedPaths()
	if err != nil {
		return 0, err
	}
	if len(known) == 0 {
		return 0, nil
	}

	current := make(map[string]struct{}, len(files))
	for _, f := range files {
		current[f.RelPath] = struct{}{}
	}

	pruned := 0
	for path, kind := range known {
		if _, ok := current[path]; ok {
			continue
		}
		coll := p.CodeCollection
		if kind == string(corpus.KindDoc) {
			coll = p.TextCollection
		}
		if err := p.Store.DeleteByFile(ctx, coll, path); err != nil {
			return pruned, fmt.Errorf("pruning points for %s: %w", path, err)
		}
		// Recording the prune keeps the next run from re-deleting it.
		if err := p.Ledger.RecordFile(runID, db.FileOutcome{
			Path:   path,
			Kind:   kind,
			Status: db.StatusPruned,
		}); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// processFile turns one corpus file into documents plus an outcome. All
// failure paths end in a failed outcome, never a panic or a propagated
// error; the rest of the batch must not care.
func (p *Pipeline) processFile(ctx context.Context, f corpus.FileInfo) fileDocs {
	outcome := db.FileOutcome{
		Path:        f.RelPath,
		Kind:        string(f.Kind),
		ContentHash: f.ContentHash,
	}

	switch f.Kind {
	case corpus.KindCode:
		return p.processCode(ctx, f, outcome)
	case corpus.KindBinary:
		return p.processBinary(ctx, f, outcome)
	case corpus.KindDoc:
		return p.processDoc(ctx, f, outcome)
	default:
		outcome.Status = db.StatusSkipped
		outcome.Error = fmt.Sprintf("unsupported kind %q", f.Kind)
		return fileDocs{outcome: outcome}
	}
}

func (p *Pipeline) processCode(ctx context.Context, f corpus.FileInfo, outcome db.FileOutcome) fileDocs {
	chunks, err := p.Chunker.ChunkFile(f.Path, f.RelPath, strings.TrimPrefix(f.Ext, "."), f.ContentHash)
	if err != nil {
		outcome.Status = db.StatusFailed
		outcome.Error = err.Error()
		return fileDocs{outcome: outcome}
	}
	if len(chunks) == 0 {
		outcome.Status = db.StatusSkipped
		outcome.Error = "empty file"
		return fileDocs{outcome: outcome}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.CodeEmbedder.Embed(ctx, texts)
	if err != nil {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("embedding: %v", err)
		return fileDocs{outcome: outcome}
	}
	if len(vectors) != len(chunks) {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		return fileDocs{outcome: outcome}
	}

	docs := make([]vectordb.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectordb.Document{
			ID:        PointID(f.RelPath, c.Index),
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata: vectordb.PointMeta{
				File:       f.RelPath,
				ChunkIndex: c.Index,
				StartLine:  c.StartLine,
				EndLine:    c.EndLine,
				Language:   c.Language,
				Size:       len(c.Text),
				FileHash:   c.ContentHash,
				Type:       vectordb.PointTypeCode,
				Family:     f.Family,
				Year:       f.Year,
				APICalls:   c.Features.APICalls,
				NetworkOps: c.Features.NetworkOps,
				CryptoOps:  c.Features.CryptoOps,
			},
		}
	}

	outcome.Status = db.StatusIngested
	outcome.Points = len(docs)
	return fileDocs{
		outcome: outcome,
		docs:    map[string][]vectordb.Document{p.CodeCollection: docs},
	}
}

func (p *Pipeline) processBinary(ctx context.Context, f corpus.FileInfo, outcome db.FileOutcome) fileDocs {
	feats, err := analysis.AnalyzeBinary(f.Path)
	if err != nil {
		// Partial features are still worth indexing; keep the parse
		// error visible on the outcome as a warning.
		outcome.Error = err.Error()
	}

	text := RenderBinaryText(f.RelPath, feats)
	vectors, embErr := p.CodeEmbedder.Embed(ctx, []string{text})
	if embErr != nil || len(vectors) == 0 {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("embedding: %v", embErr)
		return fileDocs{outcome: outcome}
	}

	// The rendered import list carries API names; scanning it fills the
	// same payload fields code chunks get, so re-ranking treats binaries
	// and sources alike.
	features := p.Extractor.Extract(text)

	doc := vectordb.Document{
		ID:        PointID(f.RelPath, 0),
		Content:   text,
		Embedding: vectors[0],
		Metadata: vectordb.PointMeta{
			File:             f.RelPath,
			Language:         strings.TrimPrefix(f.Ext, "."),
			Size:             int(f.Size),
			FileHash:         f.ContentHash,
			Type:             vectordb.PointTypeBinary,
			Family:           f.Family,
			Year:             f.Year,
			APICalls:         features.APICalls,
			NetworkOps:       features.NetworkOps,
			CryptoOps:        features.CryptoOps,
			Imports:          feats.Imports,
			Exports:          feats.Exports,
			SuspiciousTraits: feats.SuspiciousTraits,
		},
	}

	outcome.Status = db.StatusIngested
	outcome.Points = 1
	return fileDocs{
		outcome: outcome,
		docs:    map[string][]vectordb.Document{p.CodeCollection: {doc}},
	}
}

func (p *Pipeline) processDoc(ctx context.Context, f corpus.FileInfo, outcome db.FileOutcome) fileDocs {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("reading %s: %v", f.RelPath, err)
		return fileDocs{outcome: outcome}
	}

	paragraphs := SplitParagraphs(strings.ToValidUTF8(string(data), ""))
	if len(paragraphs) == 0 {
		outcome.Status = db.StatusSkipped
		outcome.Error = "no paragraphs"
		return fileDocs{outcome: outcome}
	}

	texts := make([]string, len(paragraphs))
	for i, par := range paragraphs {
		texts[i] = par.Text
	}
	vectors, err := p.TextEmbedder.Embed(ctx, texts)
	if err != nil {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("embedding: %v", err)
		return fileDocs{outcome: outcome}
	}
	if len(vectors) != len(paragraphs) {
		outcome.Status = db.StatusFailed
		outcome.Error = fmt.Sprintf("embedder returned %d vectors for %d paragraphs", len(vectors), len(paragraphs))
		return fileDocs{outcome: outcome}
	}

	docs := make([]vectordb.Document, len(paragraphs))
	for i, par := range paragraphs {
		docs[i] = vectordb.Document{
			ID:        PointID(f.RelPath, par.Index),
			Content:   par.Text,
			Embedding: vectors[i],
			Metadata: vectordb.PointMeta{
				File:      f.RelPath,
				Paragraph: par.Index,
				Language:  strings.TrimPrefix(f.Ext, "."),
				Size:      len(par.Text),
				FileHash:  f.ContentHash,
				Type:      vectordb.PointTypeDoc,
				Family:    f.Family,
				Year:      f.Year,
			},
		}
	}

	outcome.Status = db.StatusIngested
	outcome.Points = len(docs)
	return fileDocs{
		outcome: outcome,
		docs:    map[string][]vectordb.Document{p.TextCollection: docs},
	}
}
