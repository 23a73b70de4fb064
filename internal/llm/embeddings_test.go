package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"docsage/internal/service"
)

func TestEmbedTexts(t *testing.T) {
	var gotReq EmbeddingsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]},{"embedding":[0.4,0.5,0.6]}]}`)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "embed-model", 3)
	vectors, err := client.EmbedTexts(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if len(vectors[0]) != 3 {
		t.Errorf("vector size = %d, want 3", len(vectors[0]))
	}
	if vectors[1][0] != float32(0.4) {
		t.Errorf("vector value = %v", vectors[1][0])
	}
	if gotReq.Model != "embed-model" || len(gotReq.Input) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	client := NewEmbeddingsClient("http://unused", "test-key", "embed-model", 3)
	_, err := client.EmbedTexts(context.Background(), nil)
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmbedTextsSizeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2]}]}`)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "embed-model", 3)
	_, err := client.EmbedTexts(context.Background(), []string{"alpha"})
	if !errors.Is(err, service.ErrConfig) {
		t.Errorf("expected ErrConfig for a size mismatch, got %v", err)
	}
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "embed-model", 3)
	_, err := client.EmbedTexts(context.Background(), []string{"alpha", "beta"})
	if !errors.Is(err, service.ErrProvider) {
		t.Errorf("expected ErrProvider for a count mismatch, got %v", err)
	}
}

func TestEmbedTextsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "embed-model", 3)
	_, err := client.EmbedTexts(context.Background(), []string{"alpha"})
	if !errors.Is(err, service.ErrProvider) {
		t.Errorf("expected ErrProvider, got %v", err)
	}
}
