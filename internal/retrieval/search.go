// Package retrieval implements hybrid search over the sample corpus:
// dense vector search first, then a deterministic lexical boost for
// indicator overlap, then a re-sort that keeps only the top half of the
// candidates.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/embeddings"
	"github.com/vxlab/malsift/internal/vectordb"
)

// Match is one retrieval result. Score starts as the store's cosine
// similarity and grows by the keyword boost; after boosting it is no
// longer bounded by 1.
type Match struct {
	Score float64
	Text  string
	Meta  vectordb.PointMeta
}

// Searcher composes an embedder, a vector store and the feature
// extractor into the query-time retrieval path.
type Searcher struct {
	embedder  embeddings.Embedder
	store     vectordb.Store
	extractor *analysis.Extractor

	collection string
	boost      float64
}

// NewSearcher builds a Searcher over one collection. boost is the score
// added per indicator term found in a candidate's stored text (0.1 in
// the default configuration).
func NewSearcher(embedder embeddings.Embedder, store vectordb.Store, extractor *analysis.Extractor, collection string, boost float64) *Searcher {
	return &Searcher{
		embedder:   embedder,
		store:      store,
		extractor:  extractor,
		collection: collection,
		boost:      boost,
	}
}

// Hybrid retrieves the topK nearest candidates for the query, boosts
// each candidate's score by boost × (number of indicator terms from the
// query found in its text), re-sorts, and returns the top topK/2. The
// halving is deliberate: callers ask for topK candidates to re-rank and
// only the better half survives, so topK=1 yields nothing.
//
// Embedder and store failures propagate unwrapped in meaning: there is
// no retry and no fallback here, the caller decides how to surface it.
func (s *Searcher) Hybrid(ctx context.Context, query string, topK int) ([]Match, error) {
	candidates, err := s.Dense(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}

	terms := s.extractor.Extract(query).Terms()

	// Boosted copies, never in-place mutation: the dense results may be
	// aliased by the store.
	boosted := make([]Match, len(candidates))
	for i, c := range candidates {
		boosted[i] = c
		boosted[i].Score += s.boost * float64(countTerms(c.Text, terms))
	}

	// Stable sort keeps the dense (similarity) order for equal scores.
	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})

	keep := topK / 2
	if keep > len(boosted) {
		keep = len(boosted)
	}
	return boosted[:keep], nil
}

// Dense runs the vector-search stage alone, with an optional metadata
// filter. Useful for family- or language-scoped lookups where keyword
// boosting would only add noise.
func (s *Searcher) Dense(ctx context.Context, query string, limit int, filter *vectordb.Filter) ([]Match, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	results, err := s.store.SearchVector(ctx, s.collection, vectors[0], limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Score: float64(r.Similarity),
			Text:  r.Document.Content,
			Meta:  r.Document.Metadata,
		}
	}
	return matches, nil
}

// countTerms counts how many of the given terms occur in text,
// case-insensitively. Duplicate terms count once each; a missing text
// contributes zero.
func countTerms(text string, terms []string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	count := 0
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			count++
		}
	}
	return count
}
