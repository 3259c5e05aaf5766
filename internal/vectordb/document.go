package vectordb

// PointType categorizes the kind of sample a stored point came from.
type PointType string

const (
	PointTypeCode   PointType = "code"
	PointTypeBinary PointType = "binary"
	PointTypeDoc    PointType = "doc"
)

// Document is one stored point: an embedding plus the chunk text and its
// payload. Embedding is precomputed by the ingest pipeline; the store
// never embeds on its own during upserts.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  PointMeta
}

// PointMeta is the payload stored alongside each vector. Code chunks,
// binary triage points and doc paragraphs share the struct; fields that
// do not apply stay zero.
type PointMeta struct {
	File       string
	ChunkIndex int
	StartLine  int
	EndLine    int
	Paragraph  int
	Language   string
	Size       int
	FileHash   string
	Type       PointType
	Family     string
	Year       int

	APICalls   []string
	NetworkOps []string
	CryptoOps  []string

	Imports          []string
	Exports          []string
	SuspiciousTraits []string
}

// Match pairs a stored document with its similarity score.
type Match struct {
	Document   Document
	Similarity float32
}

// Filter narrows searches by exact payload values. Nil fields are
// ignored.
type Filter struct {
	Type     *PointType
	Family   *string
	Language *string
	File     *string
}
