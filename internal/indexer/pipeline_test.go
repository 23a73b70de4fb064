package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"docsage/internal/service"
	"docsage/internal/storage"
	"docsage/internal/vectorstore"
)

const testCollection = "test-chunks"
const testVectorSize = 4

// fakeEmbedder produces deterministic vectors derived from text length.
type fakeEmbedder struct {
	fail  bool
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("%w: embedding backend down", service.ErrProvider)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1, 0, 0}
	}
	return vectors, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *storage.DocumentRepo, *storage.ChunkRepo, *vectorstore.MemoryStore, *fakeEmbedder) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	vectors := vectorstore.NewMemoryStore()
	if err := vectors.EnsureCollection(context.Background(), testCollection, testVectorSize); err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}

	embedder := &fakeEmbedder{}
	pipeline := NewPipeline(docRepo, chunkRepo, embedder, vectors, testCollection)
	return pipeline, docRepo, chunkRepo, vectors, embedder
}

func TestIngestDocument(t *testing.T) {
	pipeline, _, chunkRepo, vectors, _ := newTestPipeline(t)
	ctx := context.Background()

	result, err := pipeline.IngestDocument(ctx, "user-a", "Sky Notes", "The sky is blue. Water is wet.")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	if result.Status != StatusDone {
		t.Errorf("status = %q, want %q", result.Status, StatusDone)
	}
	if result.ChunkCount == 0 {
		t.Error("expected chunks to be created")
	}
	if result.Title != "Sky Notes" {
		t.Errorf("title = %q", result.Title)
	}

	count, err := chunkRepo.CountByDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("CountByDocument() error = %v", err)
	}
	if count != result.ChunkCount {
		t.Errorf("stored %d chunks, result says %d", count, result.ChunkCount)
	}

	// The vectors are searchable under the owning user.
	hits, err := vectors.SimilaritySearch(ctx, testCollection, []float32{30, 1, 0, 0}, 5, vectorstore.Filter{UserID: "user-a"})
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if len(hits) == 0 {
		t.Error("expected indexed vectors for the document")
	}
}

func TestIngestDocumentEmptyContent(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(t)

	result, err := pipeline.IngestDocument(context.Background(), "user-a", "Empty", "")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("status = %q, want %q", result.Status, StatusDone)
	}
	if result.ChunkCount != 0 {
		t.Errorf("chunk count = %d, want 0", result.ChunkCount)
	}
}

func TestIngestDocumentMissingUser(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(t)

	_, err := pipeline.IngestDocument(context.Background(), "", "Title", "content")
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestDocumentSkipsUnchangedContent(t *testing.T) {
	pipeline, _, _, _, embedder := newTestPipeline(t)
	ctx := context.Background()

	first, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "Same content both times.")
	if err != nil {
		t.Fatalf("first ingest error = %v", err)
	}
	callsAfterFirst := embedder.calls

	second, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "Same content both times.")
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}

	if second.DocumentID != first.DocumentID {
		t.Errorf("expected same document ID, got %q and %q", first.DocumentID, second.DocumentID)
	}
	if embedder.calls != callsAfterFirst {
		t.Error("unchanged content should not be re-embedded")
	}

	// Same content for a different user is a separate document.
	other, err := pipeline.IngestDocument(ctx, "user-b", "Notes", "Same content both times.")
	if err != nil {
		t.Fatalf("other user ingest error = %v", err)
	}
	if other.DocumentID == first.DocumentID {
		t.Error("documents must not be shared across users")
	}
}

func TestIngestDocumentEmbedderFailureRollsBack(t *testing.T) {
	pipeline, docRepo, _, _, embedder := newTestPipeline(t)
	embedder.fail = true
	ctx := context.Background()

	_, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "Some content to embed.")
	if !errors.Is(err, service.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}

	docs, err := docRepo.ListByUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected rollback to remove the document, found %d", len(docs))
	}
}

func TestDeleteDocumentRoundTrip(t *testing.T) {
	pipeline, _, chunkRepo, vectors, _ := newTestPipeline(t)
	ctx := context.Background()

	result, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "The sky is blue. Water is wet.")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	if err := pipeline.DeleteDocument(ctx, "user-a", result.DocumentID); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	count, err := chunkRepo.CountByDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("CountByDocument() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected cascade to remove chunks, found %d", count)
	}

	hits, err := vectors.SimilaritySearch(ctx, testCollection, []float32{30, 1, 0, 0}, 5, vectorstore.Filter{UserID: "user-a"})
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected zero vectors after delete, found %d", len(hits))
	}
}

func TestDeleteDocumentWrongUser(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	result, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "Private content here.")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	err = pipeline.DeleteDocument(ctx, "user-b", result.DocumentID)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign document, got %v", err)
	}
}

func TestDeleteDocumentMissing(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(t)

	err := pipeline.DeleteDocument(context.Background(), "user-a", "no-such-doc")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCoverageStats(t *testing.T) {
	pipeline, _, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	if _, err := pipeline.IngestDocument(ctx, "user-a", "Notes", "The sky is blue. Water is wet."); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if _, err := pipeline.IngestDocument(ctx, "user-a", "Empty", ""); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	stats, err := pipeline.GetCoverageStats(ctx, "user-a", "test-model")
	if err != nil {
		t.Fatalf("GetCoverageStats() error = %v", err)
	}

	if stats.DocsProcessed != 2 {
		t.Errorf("docs processed = %d, want 2", stats.DocsProcessed)
	}
	if stats.DocsWithZeroChunks != 1 {
		t.Errorf("docs with zero chunks = %d, want 1", stats.DocsWithZeroChunks)
	}
	if stats.ChunksEmbedded == 0 {
		t.Error("expected embedded chunks")
	}
	if stats.ChunksByKind[KindLine] == 0 {
		t.Error("expected line chunks in breakdown")
	}
	if stats.IndexVersion == "" {
		t.Error("expected a non-empty index version")
	}
}
