package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"docsage/internal/storage"
)

const (
	// ChunkerVersion identifies the chunker implementation. Bump it when
	// the chunking passes or their parameters change.
	ChunkerVersion = "v1.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// CoverageStats describes how well a user's corpus is indexed.
type CoverageStats struct {
	// DocsProcessed is the number of documents ingested for the user.
	DocsProcessed int `json:"docs_processed"`
	// DocsWithZeroChunks is the number of documents that produced 0 chunks.
	DocsWithZeroChunks int `json:"docs_with_zero_chunks"`
	// ChunksEmbedded is the number of chunks stored for the user.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksByKind breaks the chunk count down by chunk kind.
	ChunksByKind map[string]int `json:"chunks_by_kind"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// GetCoverageStats computes indexing coverage statistics for a user by
// querying the current state of the index.
func (p *Pipeline) GetCoverageStats(ctx context.Context, userID, embeddingModelName string) (*CoverageStats, error) {
	docRepo, ok := p.docRepo.(*storage.DocumentRepo)
	if !ok {
		return nil, fmt.Errorf("docRepo is not *storage.DocumentRepo, cannot query stats")
	}
	chunkRepo, ok := p.chunkRepo.(*storage.ChunkRepo)
	if !ok {
		return nil, fmt.Errorf("chunkRepo is not *storage.ChunkRepo, cannot query stats")
	}

	db := docRepo.DB()
	if db == nil {
		return nil, fmt.Errorf("docRepo.DB() returned nil")
	}

	stats := &CoverageStats{
		ChunksByKind:   make(map[string]int),
		ChunkerVersion: ChunkerVersion,
	}

	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE user_id = ?", userID).Scan(&stats.DocsProcessed)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents
		 WHERE user_id = ? AND id NOT IN (SELECT DISTINCT document_id FROM chunks)`,
		userID).Scan(&stats.DocsWithZeroChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents with 0 chunks: %w", err)
	}

	chunkDB := chunkRepo.DB()
	if chunkDB == nil {
		return nil, fmt.Errorf("chunkRepo.DB() returned nil")
	}

	rows, err := chunkDB.QueryContext(ctx,
		"SELECT kind, text FROM chunks WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tokenCounts []int
	for rows.Next() {
		var kind, text string
		if err := rows.Scan(&kind, &text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		stats.ChunksByKind[kind]++

		runeCount := utf8.RuneCountInString(text)
		tokenCount := int(math.Round(float64(runeCount) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		tokenCounts = append(tokenCounts, tokenCount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	stats.ChunksEmbedded = len(tokenCounts)
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	indexVersionInput := fmt.Sprintf("%s|%s|small=%d/%d|medium=%d/%d|line=%d/%d",
		ChunkerVersion, embeddingModelName,
		smallChunkSize, smallChunkOverlap,
		mediumChunkSize, mediumChunkOverlap,
		lineWindow, lineStride)
	hash := sha256.Sum256([]byte(indexVersionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
