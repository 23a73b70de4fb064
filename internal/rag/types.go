package rag

// AskRequest is a question scoped to one user's corpus.
type AskRequest struct {
	UserID   string `json:"-"`
	Question string `json:"question"`
}

// Reference points at a chunk that backed the answer.
type Reference struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Kind       string  `json:"kind"`
	StartLine  int     `json:"start_line,omitempty"`
	EndLine    int     `json:"end_line,omitempty"`
	Score      float32 `json:"score"`
	Provenance string  `json:"provenance"`
}

// AskResponse is the answer to a question. Answer is always non-empty:
// failures along the query path degrade to a user-safe string instead of
// an empty body. Degraded marks answers produced by a fallback path.
type AskResponse struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
	Degraded   bool        `json:"degraded,omitempty"`
}
