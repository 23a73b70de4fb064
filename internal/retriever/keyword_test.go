package retriever

import (
	"context"
	"strings"
	"testing"
)

func keywordCorpus(t *testing.T, r *KeywordRetriever, userID string, chunks ...Chunk) {
	t.Helper()
	if err := r.AddDocuments(context.Background(), userID, chunks); err != nil {
		t.Fatalf("AddDocuments() error = %v", err)
	}
}

func TestKeywordRetrieverRanksByOverlap(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "sky", DocumentID: "d1", Text: "The sky is blue on a clear day."},
		Chunk{ID: "water", DocumentID: "d1", Text: "Water is wet and flows downhill."},
		Chunk{ID: "rocks", DocumentID: "d1", Text: "Rocks are heavy and grey."},
	)

	result, err := r.Retrieve(context.Background(), "user-a", "why is the sky blue")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(result) == 0 {
		t.Fatal("expected a match for the sky chunk")
	}
	if result[0].ID != "sky" {
		t.Errorf("top result = %s, want sky", result[0].ID)
	}
	if result[0].Provenance != ProvenanceKeyword {
		t.Errorf("provenance = %q, want keyword", result[0].Provenance)
	}
	if result[0].Score <= 0 || result[0].Score > 1 {
		t.Errorf("score = %v, want within (0, 1]", result[0].Score)
	}
	for _, chunk := range result {
		if chunk.ID == "rocks" {
			t.Error("unrelated chunk scored above the floor")
		}
	}
}

func TestKeywordRetrieverScoreFloor(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "unrelated", DocumentID: "d1", Text: "Completely different topic entirely."},
	)

	result, err := r.Retrieve(context.Background(), "user-a", "why is the sky blue")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected nothing above the score floor, got %d chunks", len(result))
	}
}

func TestKeywordRetrieverStopwordOnlyQuery(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "c1", DocumentID: "d1", Text: "Some indexed content."},
	)

	result, err := r.Retrieve(context.Background(), "user-a", "what is the")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// Bigrams of stopwords still count as query terms, so a result is
	// acceptable; a panic or error is not. An empty query must be empty.
	_ = result

	empty, err := r.Retrieve(context.Background(), "user-a", "")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty query should retrieve nothing, got %d", len(empty))
	}
}

func TestKeywordRetrieverUserIsolation(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "a1", DocumentID: "d1", Text: "The sky is blue."},
	)
	keywordCorpus(t, r, "user-b",
		Chunk{ID: "b1", DocumentID: "d2", Text: "The sky is blue and vast."},
	)

	result, err := r.Retrieve(context.Background(), "user-a", "sky blue")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, chunk := range result {
		if chunk.ID == "b1" {
			t.Fatal("retrieval leaked another user's chunk")
		}
	}
}

func TestKeywordRetrieverAddDocumentsOverwrites(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "c1", DocumentID: "d1", Text: "The original text about rivers."},
	)
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "c1", DocumentID: "d1", Text: "The replacement text about mountains."},
	)

	result, err := r.Retrieve(context.Background(), "user-a", "text about mountains")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("re-adding an ID must overwrite, got %d chunks", len(result))
	}
	if !strings.Contains(result[0].Text, "mountains") {
		t.Errorf("chunk text = %q, want the replacement", result[0].Text)
	}
}

func TestKeywordRetrieverFallbackOnNoMatch(t *testing.T) {
	r := NewKeywordRetriever(Params{})
	long := strings.Repeat("general notes about the garden ", 10)
	keywordCorpus(t, r, "user-a",
		Chunk{ID: "long", DocumentID: "d1", Text: long},
		Chunk{ID: "short", DocumentID: "d1", Text: "brief."},
	)

	result, err := r.GetDocumentsForContext(context.Background(), "user-a", "quantum chromodynamics")
	if err != nil {
		t.Fatalf("GetDocumentsForContext() error = %v", err)
	}

	if len(result) == 0 {
		t.Fatal("expected fallback chunks for a user with content")
	}
	if result[0].ID != "long" {
		t.Errorf("fallback should lead with the longest chunk, got %s", result[0].ID)
	}
	for _, chunk := range result {
		if chunk.Provenance != ProvenanceFallback {
			t.Errorf("chunk %s provenance = %q, want fallback", chunk.ID, chunk.Provenance)
		}
	}
}

func TestKeywordRetrieverFallbackEmptyCorpus(t *testing.T) {
	r := NewKeywordRetriever(Params{})

	result, err := r.GetDocumentsForContext(context.Background(), "user-a", "anything at all")
	if err != nil {
		t.Fatalf("GetDocumentsForContext() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("a user without chunks gets no context, got %d", len(result))
	}
}
