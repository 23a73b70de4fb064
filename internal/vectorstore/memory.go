package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docsage/internal/contextutil"
	"docsage/internal/service"
)

// MemoryStore implements VectorStore with an in-process index.
// It backs tests and single-node deployments that run without Qdrant.
// All operations take the collection lock, so a delete is atomic with
// respect to concurrent searches.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	lambda      float32
	closed      bool
}

type memCollection struct {
	vectorSize int
	points     []Point        // Insertion order, the tie-break order for searches
	byID       map[string]int // Point ID -> index into points
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		lambda:      DefaultMMRLambda,
	}
}

// Close marks the store unavailable. Subsequent operations report
// service.ErrStorageUnavailable, mirroring an unreachable backend.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *MemoryStore) collection(name string) *memCollection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &memCollection{byID: make(map[string]int)}
		s.collections[name] = coll
	}
	return coll
}

// EnsureCollection creates the collection or validates its vector size.
func (s *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	coll := s.collection(collection)
	if coll.vectorSize == 0 {
		coll.vectorSize = vectorSize
		return nil
	}
	if coll.vectorSize != vectorSize {
		return fmt.Errorf("%w: collection vector size mismatch: expected %d, got %d",
			service.ErrConfig, coll.vectorSize, vectorSize)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	_, ok := s.collections[collection]
	return ok, nil
}

// Upsert inserts or updates points. An existing ID keeps its insertion
// position so search tie-breaking stays stable across overwrites.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	coll := s.collection(collection)
	for _, point := range points {
		if coll.vectorSize > 0 && len(point.Vec) != coll.vectorSize {
			return fmt.Errorf("%w: point %s has vector size %d, expected %d",
				service.ErrConfig, point.ID, len(point.Vec), coll.vectorSize)
		}
		if idx, ok := coll.byID[point.ID]; ok {
			coll.points[idx] = point
			continue
		}
		coll.byID[point.ID] = len(coll.points)
		coll.points = append(coll.points, point)
	}

	return nil
}

// SimilaritySearch returns the k nearest points by cosine similarity.
func (s *MemoryStore) SimilaritySearch(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	scored := s.scoredCandidates(collection, query, filter)
	if len(scored) > k {
		scored = scored[:k]
	}

	results := make([]SearchResult, 0, len(scored))
	for _, cand := range scored {
		results = append(results, cand.result)
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "memory similarity search", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// DiversitySearch selects k diverse points from the fetchK nearest via MMR.
func (s *MemoryStore) DiversitySearch(ctx context.Context, collection string, query []float32, k, fetchK int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if fetchK < k {
		fetchK = k
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	scored := s.scoredCandidates(collection, query, filter)
	if len(scored) > fetchK {
		scored = scored[:fetchK]
	}

	candidates := make([]mmrCandidate, len(scored))
	for i, cand := range scored {
		candidates[i] = mmrCandidate{score: cand.result.Score, vec: cand.vec}
	}

	results := make([]SearchResult, 0, k)
	for _, idx := range mmrSelect(candidates, k, s.lambda) {
		results = append(results, scored[idx].result)
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "memory diversity search", "collection", collection, "k", k, "fetch_k", fetchK, "results", len(results))
	return results, nil
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	coll := s.collection(collection)
	coll.removeIf(func(p Point) bool {
		_, ok := drop[p.ID]
		return ok
	})
	return nil
}

// DeleteByDocument removes every point owned by the given document.
// Runs under the write lock, so readers never observe a partial delete.
func (s *MemoryStore) DeleteByDocument(ctx context.Context, collection string, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: memory store closed", service.ErrStorageUnavailable)
	}

	coll := s.collection(collection)
	coll.removeIf(func(p Point) bool {
		docID, _ := p.Meta[MetaDocumentID].(string)
		return docID == documentID
	})
	return nil
}

// removeIf drops all points matching the predicate, preserving the relative
// order of survivors and rebuilding the ID index.
func (c *memCollection) removeIf(match func(Point) bool) {
	kept := c.points[:0]
	for _, p := range c.points {
		if match(p) {
			delete(c.byID, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	c.points = kept
	for i, p := range c.points {
		c.byID[p.ID] = i
	}
}

type scoredPoint struct {
	result SearchResult
	vec    []float32
	order  int
}

// scoredCandidates returns all points matching the filter, scored against
// the query and sorted by score descending with insertion-order tie-break.
// Caller must hold at least the read lock.
func (s *MemoryStore) scoredCandidates(collection string, query []float32, filter Filter) []scoredPoint {
	coll, ok := s.collections[collection]
	if !ok {
		return nil
	}

	scored := make([]scoredPoint, 0, len(coll.points))
	for i, point := range coll.points {
		if !matchesFilter(point.Meta, filter) {
			continue
		}
		scored = append(scored, scoredPoint{
			result: SearchResult{
				PointID: point.ID,
				Score:   CosineSimilarity(query, point.Vec),
				Meta:    point.Meta,
			},
			vec:   point.Vec,
			order: i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].result.Score != scored[j].result.Score {
			return scored[i].result.Score > scored[j].result.Score
		}
		return scored[i].order < scored[j].order
	})

	return scored
}

// matchesFilter reports whether point metadata satisfies the filter.
// An unset filter field matches everything.
func matchesFilter(meta map[string]any, filter Filter) bool {
	if filter.UserID != "" {
		userID, _ := meta[MetaUserID].(string)
		if userID != filter.UserID {
			return false
		}
	}
	if filter.DocumentID != "" {
		docID, _ := meta[MetaDocumentID].(string)
		if docID != filter.DocumentID {
			return false
		}
	}
	return true
}
