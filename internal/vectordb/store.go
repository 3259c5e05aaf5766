package vectordb

import "context"

// Store defines the interface for storing and searching sample points by
// embedding. Implementations hold multiple named collections; malsift
// uses one for code and binary triage, one for prose documents.
type Store interface {
	// Upsert adds or overwrites points in a collection. Point IDs are
	// deterministic, so re-ingesting an unchanged file replaces its
	// points instead of duplicating them.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// SearchVector returns up to limit points nearest to the given
	// vector, sorted by descending cosine similarity.
	SearchVector(ctx context.Context, collection string, vector []float32, limit int, filter *Filter) ([]Match, error)

	// DeleteByFile removes all points of a collection that came from the
	// given file path.
	DeleteByFile(ctx context.Context, collection, file string) error

	// Count returns the number of points in a collection.
	Count(collection string) int

	// Persist saves the store's data under the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error
}
