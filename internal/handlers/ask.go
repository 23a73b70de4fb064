package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docsage/internal/contextutil"
	"docsage/internal/rag"
)

// AskHandler handles question answering requests.
type AskHandler struct {
	engine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload for questions.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse represents the HTTP response payload for questions.
type AskResponse struct {
	Answer     string              `json:"answer"`
	References []ReferenceResponse `json:"references"`
	Degraded   bool                `json:"degraded,omitempty"`
}

// ReferenceResponse points at a chunk that backed the answer.
type ReferenceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Kind       string  `json:"kind"`
	StartLine  int     `json:"start_line,omitempty"`
	EndLine    int     `json:"end_line,omitempty"`
	Score      float32 `json:"score"`
	Provenance string  `json:"provenance"`
}

// ServeHTTP answers a question against the user's indexed documents.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	resp, err := h.engine.Ask(ctx, rag.AskRequest{
		UserID:   uid,
		Question: req.Question,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	references := make([]ReferenceResponse, len(resp.References))
	for i, ref := range resp.References {
		references[i] = ReferenceResponse{
			ChunkID:    ref.ChunkID,
			DocumentID: ref.DocumentID,
			Kind:       ref.Kind,
			StartLine:  ref.StartLine,
			EndLine:    ref.EndLine,
			Score:      ref.Score,
			Provenance: ref.Provenance,
		}
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:     resp.Answer,
		References: references,
		Degraded:   resp.Degraded,
	})
}
