package indexer

// Chunk kinds produced by the chunker. Small and medium chunks come from
// the character-window passes, line chunks from the line-window pass, and
// text chunks from the plain splitter used for non-markdown content.
const (
	KindSmall  = "small"
	KindMedium = "medium"
	KindLine   = "line"
	KindText   = "text"
)

// Chunk represents a single chunk of document content ready for embedding.
// StartLine and EndLine are 1-based inclusive and only set for line chunks;
// they are zero for the character-window kinds.
type Chunk struct {
	Index     int
	Kind      string
	StartLine int
	EndLine   int
	Text      string
}

// IngestStatus is the terminal state of a document ingest.
type IngestStatus string

const (
	StatusDone   IngestStatus = "done"
	StatusFailed IngestStatus = "failed"
)

// IngestResult summarizes a single document ingest.
type IngestResult struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunk_count"`
}
