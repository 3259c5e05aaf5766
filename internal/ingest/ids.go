package ingest

import (
	"fmt"

	"github.com/google/uuid"
)

// PointID derives the vector store ID for a chunk. UUIDv5 over the file
// path and chunk index keeps re-ingestion idempotent: an unchanged file
// maps to the same IDs, so upserts overwrite instead of duplicating.
func PointID(relPath string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s_%d", relPath, index))).String()
}
