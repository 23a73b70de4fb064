package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docsage/internal/llm"
	"docsage/internal/retriever"
	"docsage/internal/retriever/mocks"
	"docsage/internal/service"
)

type fakeGenerator struct {
	reply        string
	err          error
	calls        int
	lastMessages []llm.Message
}

func (f *fakeGenerator) Complete(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
	f.calls++
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func goodChunks() []retriever.Chunk {
	return []retriever.Chunk{
		{ID: "c1", DocumentID: "d1", Kind: "small", Text: strings.Repeat("The sky is blue. ", 10), Score: 0.9, Provenance: retriever.ProvenanceDiversity},
		{ID: "c2", DocumentID: "d1", Kind: "line", StartLine: 1, EndLine: 10, Text: "Water is wet.", Score: 0.8, Provenance: retriever.ProvenanceSimilarity},
	}
}

func TestAskAnswersFromContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "The sky is blue."}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", "why is the sky blue").
		Return(goodChunks(), nil)

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "why is the sky blue"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Answer != "The sky is blue." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Degraded {
		t.Error("a grounded answer is not degraded")
	}
	if len(resp.References) != 2 {
		t.Fatalf("got %d references, want 2", len(resp.References))
	}
	if resp.References[0].ChunkID != "c1" || resp.References[1].ChunkID != "c2" {
		t.Errorf("references = %+v", resp.References)
	}
	if resp.References[1].StartLine != 1 || resp.References[1].EndLine != 10 {
		t.Errorf("line reference lost its range: %+v", resp.References[1])
	}

	// The prompt contains the assembled context and the question.
	if len(gen.lastMessages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(gen.lastMessages))
	}
	if gen.lastMessages[0].Role != "system" {
		t.Errorf("first message role = %q", gen.lastMessages[0].Role)
	}
	userMsg := gen.lastMessages[1].Content
	if !strings.Contains(userMsg, "[CHUNK 1") || !strings.Contains(userMsg, "why is the sky blue") {
		t.Errorf("user message missing context or question: %q", userMsg)
	}
}

func TestAskValidatesInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	engine := NewEngine(ret, &fakeGenerator{}, llm.ChatParams{})

	tests := []struct {
		name  string
		req   AskRequest
		field string
	}{
		{name: "missing user", req: AskRequest{Question: "anything"}, field: "user_id"},
		{name: "missing question", req: AskRequest{UserID: "user-a"}, field: "question"},
		{name: "blank question", req: AskRequest{UserID: "user-a", Question: "   "}, field: "question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Ask(context.Background(), tt.req)
			var validationErr *service.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("field = %q, want %q", validationErr.Field, tt.field)
			}
		})
	}
}

func TestAskNoContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "should not be called"}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return([]retriever.Chunk{}, nil)

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != AnswerNoContext {
		t.Errorf("answer = %q, want the no-context answer", resp.Answer)
	}
	if !resp.Degraded {
		t.Error("no-context answers are degraded")
	}
	if gen.calls != 0 {
		t.Error("generation must not run without context")
	}
}

func TestAskStorageUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "should not be called"}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return(nil, fmt.Errorf("diversity search: %w", service.ErrStorageUnavailable))

	_, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if !errors.Is(err, service.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generation must not run when the index is unreachable")
	}
}

func TestAskRetrievalFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	engine := NewEngine(ret, &fakeGenerator{}, llm.ChatParams{})
	ctx := context.Background()

	// Any retrieval failure short of storage-unavailable is treated as
	// "no context" rather than surfacing to the caller.
	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return(nil, errors.New("unexpected retrieval failure"))

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != AnswerNoContext || !resp.Degraded {
		t.Errorf("got %+v, want a degraded no-context answer", resp)
	}
}

func TestAskGenerationFailures(t *testing.T) {
	tests := []struct {
		name   string
		genErr error
		want   string
	}{
		{
			name:   "unauthorized",
			genErr: fmt.Errorf("%w: bad token", service.ErrUnauthorized),
			want:   AnswerUnauthorized,
		},
		{
			name:   "provider error",
			genErr: fmt.Errorf("%w: upstream 500", service.ErrProvider),
			want:   AnswerGenerationFailed,
		},
		{
			name:   "empty completion",
			genErr: fmt.Errorf("%w: no content", service.ErrEmptyCompletion),
			want:   AnswerGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ret := mocks.NewMockRetriever(ctrl)
			engine := NewEngine(ret, &fakeGenerator{err: tt.genErr}, llm.ChatParams{})
			ctx := context.Background()

			ret.EXPECT().
				GetDocumentsForContext(ctx, "user-a", gomock.Any()).
				Return(goodChunks(), nil)

			resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
			if err != nil {
				t.Fatalf("generation failures must not surface, got %v", err)
			}
			if resp.Answer != tt.want {
				t.Errorf("answer = %q, want %q", resp.Answer, tt.want)
			}
			if !resp.Degraded {
				t.Error("fallback answers are degraded")
			}
		})
	}
}

func TestAskSanitizesAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "As seen in CHUNK 1, the sky is blue. [CHUNK 2 - TYPE: line]"}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return(goodChunks(), nil)

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strings.Contains(strings.ToLower(resp.Answer), "chunk") {
		t.Errorf("answer leaked a chunk reference: %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "the sky is blue") {
		t.Errorf("answer lost its content: %q", resp.Answer)
	}
}

func TestAskSanitizedToEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "[CHUNK 1 - TYPE: small]"}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return(goodChunks(), nil)

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != AnswerGenerationFailed {
		t.Errorf("answer = %q, want the generation-failed answer", resp.Answer)
	}
	if !resp.Degraded {
		t.Error("an unusable completion is degraded")
	}
}

func TestAskFallbackContextMarksDegraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	ret := mocks.NewMockRetriever(ctrl)
	gen := &fakeGenerator{reply: "A best-effort answer."}
	engine := NewEngine(ret, gen, llm.ChatParams{})
	ctx := context.Background()

	ret.EXPECT().
		GetDocumentsForContext(ctx, "user-a", gomock.Any()).
		Return([]retriever.Chunk{
			{ID: "c1", DocumentID: "d1", Kind: "small", Text: "longest chunk text", Provenance: retriever.ProvenanceFallback},
		}, nil)

	resp, err := engine.Ask(ctx, AskRequest{UserID: "user-a", Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Degraded {
		t.Error("fallback-context answers are degraded")
	}
	if len(resp.References) != 1 || resp.References[0].Provenance != retriever.ProvenanceFallback {
		t.Errorf("references = %+v", resp.References)
	}
}
