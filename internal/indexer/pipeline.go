package indexer

import (
	"context"
	"crypto/sha256"
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

// Pipeline orchestrates document ingest: chunking, embedding, and storage
// in both SQLite and the vector store.
type Pipeline struct {
	docRepo    storage.DocumentStore
	chunkRepo  storage.ChunkStore
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
	chunker    *Chunker
}

// NewPipeline creates a new ingest pipeline.
func NewPipeline(
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder Embedder,
	vectors vectorstore.VectorStore,
	collection string,
) *Pipeline {
	return &Pipeline{
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		chunker:    NewChunker(),
	}
}

// IngestDocument ingests a single document for a user. The document moves
// through chunking, embedding, and indexing; a failure at any step removes
// whatever was written so a document is never left half ingested. A
// document that produces zero chunks still completes with status done.
//
// Content with the same hash as an already ingested document for the same
// user is not re-ingested; the existing document is returned.
func (p *Pipeline) IngestDocument(ctx context.Context, userID, title, content string) (*IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(userID) == "" {
		return nil, &service.ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	// Empty content is accepted: it ingests as a document with zero
	// chunks rather than failing, so bulk uploads never abort on one
	// blank file.
	if strings.TrimSpace(title) == "" {
		title = ExtractTitle([]byte(content), "untitled")
	}

	hash := sha256.Sum256([]byte(content))
	hashHex := fmt.Sprintf("%x", hash)

	// Skip re-ingesting identical content for the same user.
	existing, err := p.docRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range existing {
		if doc.Hash == hashHex {
			count, err := p.chunkRepo.CountByDocument(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count chunks: %w", err)
			}
			logger.DebugContext(ctx, "skipping unchanged document", "document_id", doc.ID, "hash", hashHex)
			return &IngestResult{
				DocumentID: doc.ID,
				Title:      doc.Title,
				Status:     StatusDone,
				ChunkCount: count,
			}, nil
		}
	}

	docID := uuid.New().String()
	record := &storage.DocumentRecord{
		ID:     docID,
		UserID: userID,
		Title:  title,
		Hash:   hashHex,
	}
	if err := p.docRepo.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	chunks := p.chunker.ChunkDocument(ctx, content)
	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "document_id", docID, "title", title)
		return &IngestResult{
			DocumentID: docID,
			Title:      title,
			Status:     StatusDone,
			ChunkCount: 0,
		}, nil
	}

	chunkTexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkTexts[i] = chunk.Text
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, chunkTexts)
	if err != nil {
		p.rollback(ctx, docID)
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		p.rollback(ctx, docID)
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", service.ErrProvider, len(chunks), len(embeddings))
	}

	chunkRecords := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))

	for i, chunk := range chunks {
		chunkID := uuid.New().String()

		chunkRecords[i] = &storage.ChunkRecord{
			ID:         chunkID,
			DocumentID: docID,
			UserID:     userID,
			ChunkIndex: chunk.Index,
			Kind:       chunk.Kind,
			StartLine:  chunk.StartLine,
			EndLine:    chunk.EndLine,
			Text:       chunk.Text,
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				vectorstore.MetaUserID:     userID,
				vectorstore.MetaDocumentID: docID,
				vectorstore.MetaKind:       chunk.Kind,
				vectorstore.MetaChunkIndex: chunk.Index,
				vectorstore.MetaStartLine:  chunk.StartLine,
				vectorstore.MetaEndLine:    chunk.EndLine,
			},
		}
	}

	for _, chunkRecord := range chunkRecords {
		if err := p.chunkRepo.Insert(ctx, chunkRecord); err != nil {
			p.rollback(ctx, docID)
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := p.vectors.Upsert(ctx, p.collection, points); err != nil {
		p.rollback(ctx, docID)
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	logger.InfoContext(ctx, "ingested document", "document_id", docID, "title", title, "chunks", len(chunks))
	return &IngestResult{
		DocumentID: docID,
		Title:      title,
		Status:     StatusDone,
		ChunkCount: len(chunks),
	}, nil
}

// rollback removes a partially ingested document from both stores.
// Best effort: a failed rollback is logged, not returned, since the
// caller is already handling the original ingest failure.
func (p *Pipeline) rollback(ctx context.Context, docID string) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.vectors.DeleteByDocument(ctx, p.collection, docID); err != nil {
		logger.WarnContext(ctx, "rollback: failed to delete vectors", "document_id", docID, "error", err)
	}
	if err := p.docRepo.Delete(ctx, docID); err != nil {
		logger.WarnContext(ctx, "rollback: failed to delete document", "document_id", docID, "error", err)
	}
}

// DeleteDocument removes a document and all of its chunks from both the
// vector store and SQLite. Vectors go first: if the vector delete fails,
// the SQLite rows stay so the operation can be retried without orphaning
// vectors that no longer have backing text.
func (p *Pipeline) DeleteDocument(ctx context.Context, userID, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := p.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return fmt.Errorf("%w: document %s", service.ErrNotFound, documentID)
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	// A document owned by another user is reported as not found.
	if doc.UserID != userID {
		return fmt.Errorf("%w: document %s", service.ErrNotFound, documentID)
	}

	if err := p.vectors.DeleteByDocument(ctx, p.collection, documentID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if err := p.docRepo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	logger.InfoContext(ctx, "deleted document", "document_id", documentID)
	return nil
}
