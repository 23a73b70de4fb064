package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docsage/internal/contextutil"
	"docsage/internal/service"
	"docsage/internal/storage"
	"docsage/internal/vectorstore"
)

// Embedder generates one embedding vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingRetriever retrieves chunks from the vector store using a
// two-pass hybrid policy: a diversity pass over a wide candidate pool
// followed by a plain similarity pass, deduplicated by content.
type EmbeddingRetriever struct {
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
	chunkRepo  storage.ChunkStore
	params     Params
}

// NewEmbeddingRetriever creates an embedding-based retriever.
func NewEmbeddingRetriever(
	embedder Embedder,
	vectors vectorstore.VectorStore,
	collection string,
	chunkRepo storage.ChunkStore,
	params Params,
) *EmbeddingRetriever {
	return &EmbeddingRetriever{
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		chunkRepo:  chunkRepo,
		params:     params.withDefaults(),
	}
}

// Retrieve runs the hybrid ranking policy for a user's query. Diversity
// results come first, then similarity results whose content is not
// already present, capped at DiverseK+SimilarK entries.
//
// A storage-unavailable error from the vector store propagates to the
// caller. Every other failure (embedding provider down, a single bad
// point) degrades to a smaller or empty result.
func (r *EmbeddingRetriever) Retrieve(ctx context.Context, userID, query string) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return []Chunk{}, nil
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		logger.WarnContext(ctx, "failed to embed query, returning empty retrieval", "error", err)
		return []Chunk{}, nil
	}
	queryVector := embeddings[0]

	filter := vectorstore.Filter{UserID: userID}

	var ranked []Chunk

	diverse, err := r.vectors.DiversitySearch(ctx, r.collection, queryVector, r.params.DiverseK, r.params.FetchK, filter)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			return nil, fmt.Errorf("diversity search: %w", err)
		}
		logger.WarnContext(ctx, "diversity search failed, continuing with similarity pass", "error", err)
	}
	ranked = append(ranked, r.hydrate(ctx, diverse, ProvenanceDiversity)...)

	similar, err := r.vectors.SimilaritySearch(ctx, r.collection, queryVector, r.params.SimilarK, filter)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		logger.WarnContext(ctx, "similarity search failed, continuing with diversity results", "error", err)
	}
	ranked = append(ranked, r.hydrate(ctx, similar, ProvenanceSimilarity)...)

	return dedupeByContent(ranked, r.params.DiverseK+r.params.SimilarK), nil
}

// hydrate loads chunk text for search results from SQLite. A chunk that
// cannot be loaded is skipped, not fatal: the vector store and SQLite can
// briefly disagree around a concurrent delete.
func (r *EmbeddingRetriever) hydrate(ctx context.Context, results []vectorstore.SearchResult, provenance string) []Chunk {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := make([]Chunk, 0, len(results))
	for _, result := range results {
		record, err := r.chunkRepo.GetByID(ctx, result.PointID)
		if err != nil {
			logger.WarnContext(ctx, "failed to load chunk text, skipping", "chunk_id", result.PointID, "error", err)
			continue
		}

		chunks = append(chunks, Chunk{
			ID:         record.ID,
			DocumentID: record.DocumentID,
			Kind:       record.Kind,
			StartLine:  record.StartLine,
			EndLine:    record.EndLine,
			Text:       record.Text,
			Score:      result.Score,
			Provenance: provenance,
		})
	}
	return chunks
}

// AddDocuments embeds the given chunks and upserts them into the vector
// store under the user's ownership. Chunks without an ID get one.
func (r *EmbeddingRetriever) AddDocuments(ctx context.Context, userID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.New().String()
		}

		points[i] = vectorstore.Point{
			ID:  id,
			Vec: embeddings[i],
			Meta: map[string]any{
				vectorstore.MetaUserID:     userID,
				vectorstore.MetaDocumentID: chunk.DocumentID,
				vectorstore.MetaKind:       chunk.Kind,
				vectorstore.MetaChunkIndex: i,
				vectorstore.MetaStartLine:  chunk.StartLine,
				vectorstore.MetaEndLine:    chunk.EndLine,
			},
		}
	}

	if err := r.vectors.Upsert(ctx, r.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}

// GetDocumentsForContext retrieves chunks for prompt assembly, applying
// the fallback policy: when the ranked result is empty or its combined
// content is shorter than MinContextChars, the user's longest chunks are
// returned instead, tagged as low-confidence.
func (r *EmbeddingRetriever) GetDocumentsForContext(ctx context.Context, userID, query string) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ranked, err := r.Retrieve(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	if len(ranked) > 0 && totalContentLength(ranked) >= r.params.MinContextChars {
		return ranked, nil
	}

	records, err := r.chunkRepo.LongestByUser(ctx, userID, 3)
	if err != nil {
		logger.WarnContext(ctx, "fallback retrieval failed", "error", err)
		return ranked, nil
	}

	if len(records) == 0 {
		return ranked, nil
	}

	logger.InfoContext(ctx, "retrieval result too thin, using longest chunks as fallback context",
		"ranked", len(ranked), "fallback", len(records))

	fallback := make([]Chunk, 0, len(records))
	for _, record := range records {
		fallback = append(fallback, Chunk{
			ID:         record.ID,
			DocumentID: record.DocumentID,
			Kind:       record.Kind,
			StartLine:  record.StartLine,
			EndLine:    record.EndLine,
			Text:       record.Text,
			Provenance: ProvenanceFallback,
		})
	}
	return fallback, nil
}
