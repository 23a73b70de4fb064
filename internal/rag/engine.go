package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docsage/internal/contextutil"
	"docsage/internal/llm"
	"docsage/internal/retriever"
	"docsage/internal/service"
)

// User-safe answer strings for the degraded paths. The query path always
// produces one of these or a real answer, never an empty body.
const (
	AnswerNoContext        = "I couldn't find anything in your documents to answer that."
	AnswerUnauthorized     = "Unauthorized. Please check your API token."
	AnswerGenerationFailed = "Sorry, something went wrong while generating an answer. Please try again."
)

const systemPrompt = `You are an assistant that answers questions about the user's personal documents.

Rules:
- Answer using only the provided context. Do not use outside knowledge.
- If the context does not contain the answer, say plainly that the documents do not cover it.
- Never mention chunks, chunk numbers, context sections, or how the context was assembled.
- Answer directly. Do not restate the question or explain your reasoning process.`

// Engine answers questions over a user's indexed documents.
type Engine interface {
	// Ask retrieves relevant chunks and generates a grounded answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks docsage/internal/rag Engine

// Generator produces a completion for a chat message sequence.
type Generator interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

type ragEngine struct {
	retriever retriever.Retriever
	generator Generator
	params    llm.ChatParams
}

// NewEngine creates a new query engine.
func NewEngine(ret retriever.Retriever, generator Generator, params llm.ChatParams) Engine {
	return &ragEngine{
		retriever: ret,
		generator: generator,
		params:    params,
	}
}

// Ask runs the query path: retrieve, assemble context, generate,
// sanitize. Each stage has a defined fallback so the caller always gets
// an answer string; the one error that propagates is the vector store
// being unreachable, which the caller must be able to tell apart from
// "your documents have nothing on this".
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.UserID) == "" {
		return AskResponse{}, &service.ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	if strings.TrimSpace(req.Question) == "" {
		return AskResponse{}, &service.ValidationError{Field: "question", Message: "question is required"}
	}

	logger.InfoContext(ctx, "query started", "question", req.Question)

	chunks, err := e.retriever.GetDocumentsForContext(ctx, req.UserID, req.Question)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			logger.ErrorContext(ctx, "retrieval storage unavailable", "error", err)
			return AskResponse{}, fmt.Errorf("retrieval failed: %w", err)
		}
		logger.ErrorContext(ctx, "retrieval failed, answering without context", "error", err)
		chunks = nil
	}

	if len(chunks) == 0 {
		return AskResponse{Answer: AnswerNoContext, References: []Reference{}, Degraded: true}, nil
	}

	contextStr := FormatContext(chunks)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextStr, req.Question)},
	}

	completion, err := e.generator.Complete(ctx, messages, e.params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			logger.ErrorContext(ctx, "generation rejected credentials", "error", err)
			return AskResponse{Answer: AnswerUnauthorized, References: []Reference{}, Degraded: true}, nil
		default:
			logger.ErrorContext(ctx, "generation failed", "error", err)
			return AskResponse{Answer: AnswerGenerationFailed, References: []Reference{}, Degraded: true}, nil
		}
	}

	answer := Sanitize(completion)
	if answer == "" {
		logger.ErrorContext(ctx, "generation produced no usable content after sanitization")
		return AskResponse{Answer: AnswerGenerationFailed, References: []Reference{}, Degraded: true}, nil
	}

	references := make([]Reference, 0, len(chunks))
	degraded := false
	for _, chunk := range chunks {
		if chunk.Provenance == retriever.ProvenanceFallback {
			degraded = true
		}
		references = append(references, Reference{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Kind:       chunk.Kind,
			StartLine:  chunk.StartLine,
			EndLine:    chunk.EndLine,
			Score:      chunk.Score,
			Provenance: chunk.Provenance,
		})
	}

	logger.InfoContext(ctx, "query answered", "chunks", len(chunks), "degraded", degraded)

	return AskResponse{
		Answer:     answer,
		References: references,
		Degraded:   degraded,
	}, nil
}
