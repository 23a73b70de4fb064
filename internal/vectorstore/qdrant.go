package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"docsage/internal/contextutil"
	"docsage/internal/service"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
	lambda float32
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// Extract port from URL, default to 6333 for HTTP
	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
		lambda: DefaultMMRLambda,
	}, nil
}

// Upsert inserts or updates points in the collection.
// Qdrant upserts by point ID, so duplicate IDs overwrite in place.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		qdrantPoint := &qdrant.PointStruct{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vec...),
		}

		if len(point.Meta) > 0 {
			qdrantPoint.Payload = qdrant.NewValueMap(point.Meta)
		}

		qdrantPoints = append(qdrantPoints, qdrantPoint)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("%w: failed to upsert points: %w", service.ErrStorageUnavailable, err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// SimilaritySearch performs a filtered nearest-neighbour search.
func (s *QdrantStore) SimilaritySearch(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	scoredPoints, err := s.query(ctx, collection, query, k, filter, false)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, err
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		results = append(results, toSearchResult(point))
	}

	logger.InfoContext(ctx, "similarity search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// DiversitySearch fetches the fetchK nearest neighbours with their vectors
// and selects k of them by maximal marginal relevance.
func (s *QdrantStore) DiversitySearch(ctx context.Context, collection string, query []float32, k, fetchK int, filter Filter) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if fetchK < k {
		fetchK = k
	}

	scoredPoints, err := s.query(ctx, collection, query, fetchK, filter, true)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch diversity pool", "collection", collection, "fetch_k", fetchK, "error", err)
		return nil, err
	}

	candidates := make([]mmrCandidate, len(scoredPoints))
	for i, point := range scoredPoints {
		var vec []float32
		if vo := point.GetVectors().GetVector(); vo != nil {
			vec = vo.GetData()
		}
		candidates[i] = mmrCandidate{score: point.GetScore(), vec: vec}
	}

	results := make([]SearchResult, 0, k)
	for _, idx := range mmrSelect(candidates, k, s.lambda) {
		results = append(results, toSearchResult(scoredPoints[idx]))
	}

	logger.InfoContext(ctx, "diversity search completed", "collection", collection, "k", k, "fetch_k", fetchK, "results", len(results))
	return results, nil
}

// query runs a Qdrant query with the ownership filter applied.
func (s *QdrantStore) query(ctx context.Context, collection string, query []float32, limit int, filter Filter, withVectors bool) ([]*qdrant.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limitU := uint64(limit)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limitU,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if withVectors {
		queryReq.WithVectors = qdrant.NewWithVectors(true)
	}
	if qdrantFilter := buildFilter(filter); qdrantFilter != nil {
		queryReq.Filter = qdrantFilter
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query points: %w", service.ErrStorageUnavailable, err)
	}
	return scoredPoints, nil
}

// Delete removes points by their IDs.
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(qdrantIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", collection, "count", len(ids), "error", err)
		return fmt.Errorf("%w: failed to delete points: %w", service.ErrStorageUnavailable, err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", collection, "count", len(ids))
	return nil
}

// DeleteByDocument removes every point owned by the given document.
// Uses a single filtered delete so Qdrant applies it as one operation.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, collection string, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if documentID == "" {
		return fmt.Errorf("document ID must not be empty")
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(MetaDocumentID, documentID),
			},
		}),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete document points", "collection", collection, "document_id", documentID, "error", err)
		return fmt.Errorf("%w: failed to delete document points: %w", service.ErrStorageUnavailable, err)
	}

	logger.InfoContext(ctx, "deleted document points", "collection", collection, "document_id", documentID)
	return nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check collection existence: %w", service.ErrStorageUnavailable, err)
	}
	return exists, nil
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it with the specified vector size.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to create collection: %w", service.ErrStorageUnavailable, err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return nil
	}

	// Collection exists, validate vector size
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: failed to get collection info: %w", service.ErrStorageUnavailable, err)
	}

	config := info.GetConfig()
	if config == nil || config.GetParams() == nil {
		return fmt.Errorf("%w: collection config is invalid", service.ErrConfig)
	}

	vectorsConfig := config.GetParams().GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("%w: collection vectors config is invalid", service.ErrConfig)
	}

	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("%w: collection vector params are invalid", service.ErrConfig)
	}

	actualSize := params.GetSize()
	if actualSize == 0 {
		return fmt.Errorf("%w: could not determine collection vector size", service.ErrConfig)
	}

	if int(actualSize) != vectorSize {
		return fmt.Errorf("%w: collection vector size mismatch: expected %d, got %d",
			service.ErrConfig, vectorSize, actualSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return nil
}

// toSearchResult converts a Qdrant scored point into a SearchResult.
func toSearchResult(point *qdrant.ScoredPoint) SearchResult {
	pointID := ""
	if point.GetId() != nil {
		pointID = point.GetId().GetUuid()
	}

	meta := make(map[string]any)
	if point.GetPayload() != nil {
		meta = convertPayloadToMap(point.GetPayload())
	}

	return SearchResult{
		PointID: pointID,
		Score:   point.GetScore(),
		Meta:    meta,
	}
}

// buildFilter converts the ownership filter into Qdrant match conditions.
func buildFilter(filter Filter) *qdrant.Filter {
	var mustConditions []*qdrant.Condition
	if filter.UserID != "" {
		mustConditions = append(mustConditions, qdrant.NewMatch(MetaUserID, filter.UserID))
	}
	if filter.DocumentID != "" {
		mustConditions = append(mustConditions, qdrant.NewMatch(MetaDocumentID, filter.DocumentID))
	}
	if len(mustConditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: mustConditions}
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
