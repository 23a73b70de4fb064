package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docsage/internal/contextutil"
	"docsage/internal/indexer"
	"docsage/internal/storage"
)

// DocumentHandler handles document upload, listing, and deletion.
type DocumentHandler struct {
	pipeline *indexer.Pipeline
	docRepo  storage.DocumentStore
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(pipeline *indexer.Pipeline, docRepo storage.DocumentStore) *DocumentHandler {
	return &DocumentHandler{
		pipeline: pipeline,
		docRepo:  docRepo,
	}
}

// UploadRequest represents the HTTP request payload for document upload.
// Title is optional; a missing title is derived from the content.
type UploadRequest struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// DocumentResponse represents one document in listing responses.
type DocumentResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Upload ingests a document for the authenticated user.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		logger.WarnContext(ctx, "empty content in upload")
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}

	result, err := h.pipeline.IngestDocument(ctx, uid, req.Title, req.Content)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to ingest document")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns the authenticated user's documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, ok := userID(w, r)
	if !ok {
		return
	}

	docs, err := h.docRepo.ListByUser(ctx, uid)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	response := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, DocumentResponse{
			ID:        doc.ID,
			Title:     doc.Title,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// Delete removes one of the authenticated user's documents, including its
// chunks and vectors.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, ok := userID(w, r)
	if !ok {
		return
	}

	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.pipeline.DeleteDocument(ctx, uid, documentID); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
