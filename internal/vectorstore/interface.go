package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks docsage/internal/vectorstore VectorStore

import "context"

// Metadata keys stored on every point. Reads rely on these for scoping.
const (
	MetaUserID     = "user_id"
	MetaDocumentID = "document_id"
	MetaKind       = "kind"
	MetaChunkIndex = "chunk_index"
	MetaStartLine  = "start_line"
	MetaEndLine    = "end_line"
)

// DefaultMMRLambda balances relevance against diversity in DiversitySearch.
// An observed-good default, not a derived constant.
const DefaultMMRLambda = float32(0.5)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter scopes read operations by ownership. A zero UserID means no user
// scoping and must only be used by trusted internal callers (tests, stats);
// the retrieval path always sets it.
type Filter struct {
	UserID     string
	DocumentID string
}

// VectorStore defines the interface for vector index operations.
// A read that fails because the backing store is unreachable reports
// service.ErrStorageUnavailable; an empty result slice means "no matches".
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	// A point whose ID already exists is overwritten, never duplicated.
	Upsert(ctx context.Context, collection string, points []Point) error

	// SimilaritySearch returns the k nearest points by cosine similarity,
	// descending. Ties are broken by insertion order (stable).
	SimilaritySearch(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// DiversitySearch selects k points from a candidate pool of fetchK
	// nearest neighbours using maximal marginal relevance, avoiding
	// near-duplicate results.
	DiversitySearch(ctx context.Context, collection string, query []float32, k, fetchK int, filter Filter) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByDocument removes every point owned by the given document.
	// Atomic with respect to concurrent reads: a reader sees either all of
	// the document's points or none of them.
	DeleteByDocument(ctx context.Context, collection string, documentID string) error

	// EnsureCollection creates the collection with the given vector size if
	// missing, or validates the size if it exists. A size mismatch is a
	// configuration error.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection exists. Used by
	// health checks to probe the backing store.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
