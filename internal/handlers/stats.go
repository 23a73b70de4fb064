package handlers

import (
	"net/http"

	"docsage/internal/indexer"
)

// StatsHandler serves indexing coverage statistics for a user's corpus.
type StatsHandler struct {
	pipeline           *indexer.Pipeline
	embeddingModelName string
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(pipeline *indexer.Pipeline, embeddingModelName string) *StatsHandler {
	return &StatsHandler{
		pipeline:           pipeline,
		embeddingModelName: embeddingModelName,
	}
}

// ServeHTTP returns coverage stats for the authenticated user.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, ok := userID(w, r)
	if !ok {
		return
	}

	stats, err := h.pipeline.GetCoverageStats(ctx, uid, h.embeddingModelName)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
