// Package retriever selects the best bounded set of chunks for a query.
// Two implementations exist: EmbeddingRetriever queries the vector store
// with a hybrid diversity-plus-similarity policy, and KeywordRetriever
// scores an in-memory corpus lexically for deployments without an
// embedding provider. Both sit behind the Retriever interface.
package retriever

import "context"

// Provenance tags record which ranking pass selected a chunk.
const (
	ProvenanceDiversity  = "diversity"
	ProvenanceSimilarity = "similarity"
	ProvenanceKeyword    = "keyword"
	ProvenanceFallback   = "fallback"
)

// Chunk is a retrieved chunk with its relevance score and provenance.
type Chunk struct {
	ID         string
	DocumentID string
	Kind       string
	StartLine  int
	EndLine    int
	Text       string
	Score      float32
	Provenance string
}

// Params bounds a retrieval. Zero values take the defaults.
type Params struct {
	// DiverseK is the number of chunks taken from the diversity pass.
	DiverseK int
	// FetchK is the candidate pool size for the diversity pass.
	FetchK int
	// SimilarK is the number of chunks taken from the similarity pass.
	SimilarK int
	// MinContextChars is the combined content length below which the
	// result is considered too thin and the fallback policy applies.
	MinContextChars int
	// ScoreFloor is the minimum score a lexically ranked chunk must
	// reach. Only the keyword retriever consults it.
	ScoreFloor float32
}

// Default retrieval parameters. The context-length threshold and score
// floor are heuristics; treat them as tunable rather than contracts.
const (
	DefaultDiverseK        = 5
	DefaultFetchK          = 15
	DefaultSimilarK        = 3
	DefaultMinContextChars = 100
	DefaultScoreFloor      = float32(0.1)
)

func (p Params) withDefaults() Params {
	if p.DiverseK == 0 {
		p.DiverseK = DefaultDiverseK
	}
	if p.FetchK == 0 {
		p.FetchK = DefaultFetchK
	}
	if p.SimilarK == 0 {
		p.SimilarK = DefaultSimilarK
	}
	if p.MinContextChars == 0 {
		p.MinContextChars = DefaultMinContextChars
	}
	if p.ScoreFloor == 0 {
		p.ScoreFloor = DefaultScoreFloor
	}
	return p
}

// Retriever produces ranked chunks for a user's query.
//
// Retrieve returns the raw ranked result; a storage-unavailable error
// propagates so the caller can tell "no matches" from "can't search",
// while every other retrieval failure degrades to an empty result.
// GetDocumentsForContext wraps Retrieve with the fallback policy that
// guarantees some context whenever the user has any chunks at all.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string) ([]Chunk, error)
	AddDocuments(ctx context.Context, userID string, chunks []Chunk) error
	GetDocumentsForContext(ctx context.Context, userID, query string) ([]Chunk, error)
}

//go:generate mockgen -destination=mocks/mock_retriever.go -package=mocks docsage/internal/retriever Retriever

// dedupeByContent keeps the first occurrence of each chunk text and caps
// the result at limit entries. Order is preserved.
func dedupeByContent(chunks []Chunk, limit int) []Chunk {
	seen := make(map[string]struct{}, len(chunks))
	result := make([]Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		if _, ok := seen[chunk.Text]; ok {
			continue
		}
		seen[chunk.Text] = struct{}{}
		result = append(result, chunk)
		if len(result) >= limit {
			break
		}
	}

	return result
}

// totalContentLength sums the length of all chunk texts.
func totalContentLength(chunks []Chunk) int {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk.Text)
	}
	return total
}
