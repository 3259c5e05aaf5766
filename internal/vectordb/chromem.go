package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/vxlab/malsift/internal/embeddings"
)

// ChromemStore implements Store using chromem-go, an embedded vector
// database. Everything stays on the local machine, which is the right
// default for a corpus of live samples.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	embedFuncs  map[string]chromem.EmbeddingFunc
}

// NewChromemStore creates an in-memory ChromemStore with one collection
// per named embedder.
func NewChromemStore(collEmbedders map[string]embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	s := &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection, len(collEmbedders)),
		embedFuncs:  make(map[string]chromem.EmbeddingFunc, len(collEmbedders)),
	}

	for name, embedder := range collEmbedders {
		ef := embeddings.ToChromemFunc(embedder)
		col, err := db.GetOrCreateCollection(name, nil, ef)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
		s.collections[name] = col
		s.embedFuncs[name] = ef
	}

	return s, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return col, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  metadataToMap(doc.Metadata),
		}
	}

	return col.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) SearchVector(ctx context.Context, collection string, vector []float32, limit int, filter *Filter) ([]Match, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	if count := col.Count(); limit > count && count > 0 {
		limit = count
	} else if count == 0 {
		return nil, nil
	}

	where := buildWhereClause(filter)

	results, err := col.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}

	return matches, nil
}

func (s *ChromemStore) DeleteByFile(ctx context.Context, collection, file string) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}
	return col.Delete(ctx, map[string]string{"file": file}, nil)
}

func (s *ChromemStore) Count(collection string) int {
	col, ok := s.collections[collection]
	if !ok {
		return 0
	}
	return col.Count()
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(dir+"/chromem.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection references after import.
	for name, ef := range s.embedFuncs {
		col := s.db.GetCollection(name, ef)
		if col == nil {
			return fmt.Errorf("collection %q not found after import", name)
		}
		s.collections[name] = col
	}
	return nil
}

// metadataToMap converts PointMeta to a flat map[string]string for
// chromem. List fields are JSON-encoded; empty lists are omitted.
func metadataToMap(m PointMeta) map[string]string {
	md := map[string]string{
		"file":        m.File,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"start_line":  strconv.Itoa(m.StartLine),
		"end_line":    strconv.Itoa(m.EndLine),
		"paragraph":   strconv.Itoa(m.Paragraph),
		"language":    m.Language,
		"size":        strconv.Itoa(m.Size),
		"file_hash":   m.FileHash,
		"type":        string(m.Type),
		"family":      m.Family,
		"year":        strconv.Itoa(m.Year),
	}
	putList(md, "api_calls", m.APICalls)
	putList(md, "network_operations", m.NetworkOps)
	putList(md, "crypto_operations", m.CryptoOps)
	putList(md, "imports", m.Imports)
	putList(md, "exports", m.Exports)
	putList(md, "suspicious_characteristics", m.SuspiciousTraits)
	return md
}

// mapToMetadata converts a flat map[string]string back to PointMeta.
func mapToMetadata(m map[string]string) PointMeta {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	startLine, _ := strconv.Atoi(m["start_line"])
	endLine, _ := strconv.Atoi(m["end_line"])
	paragraph, _ := strconv.Atoi(m["paragraph"])
	size, _ := strconv.Atoi(m["size"])
	year, _ := strconv.Atoi(m["year"])

	return PointMeta{
		File:             m["file"],
		ChunkIndex:       chunkIndex,
		StartLine:        startLine,
		EndLine:          endLine,
		Paragraph:        paragraph,
		Language:         m["language"],
		Size:             size,
		FileHash:         m["file_hash"],
		Type:             PointType(m["type"]),
		Family:           m["family"],
		Year:             year,
		APICalls:         getList(m, "api_calls"),
		NetworkOps:       getList(m, "network_operations"),
		CryptoOps:        getList(m, "crypto_operations"),
		Imports:          getList(m, "imports"),
		Exports:          getList(m, "exports"),
		SuspiciousTraits: getList(m, "suspicious_characteristics"),
	}
}

func putList(md map[string]string, key string, list []string) {
	if len(list) == 0 {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		return
	}
	md[key] = string(data)
}

func getList(md map[string]string, key string) []string {
	raw, ok := md[key]
	if !ok || raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

// buildWhereClause converts a Filter to a chromem where clause.
func buildWhereClause(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.Type != nil {
		where["type"] = string(*filter.Type)
	}
	if filter.Family != nil {
		where["family"] = *filter.Family
	}
	if filter.Language != nil {
		where["language"] = *filter.Language
	}
	if filter.File != nil {
		where["file"] = *filter.File
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
