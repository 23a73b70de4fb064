package storage

import "time"

// DocumentRecord represents an uploaded document in the database.
// Documents are immutable once created; updates happen by delete + re-ingest.
type DocumentRecord struct {
	ID        string // UUID
	UserID    string // Owning user identifier (opaque, assigned upstream)
	Title     string // Extracted title, may be empty
	Hash      string // SHA256 hex string of the raw text
	CreatedAt time.Time
}

// ChunkRecord represents a chunk of text derived from a document,
// indexed for vector search.
type ChunkRecord struct {
	ID         string // UUID (same as the vector store point ID)
	DocumentID string // UUID (foreign key to documents.id)
	UserID     string // Denormalized owner, kept for fallback queries
	ChunkIndex int    // Index within document (starts at 0)
	Kind       string // One of "small", "medium", "line", "text"
	StartLine  int    // First line (1-based, inclusive) for line-kind chunks, else 0
	EndLine    int    // Last line (1-based, inclusive) for line-kind chunks, else 0
	Text       string // Chunk text content
}
