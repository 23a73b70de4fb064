package indexer

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkDocumentProducesAllKinds(t *testing.T) {
	// Long enough to force multiple small and medium chunks.
	var builder strings.Builder
	for i := 0; i < 60; i++ {
		builder.WriteString("This is a sentence about topic number ")
		builder.WriteString(strings.Repeat("x", i%7))
		builder.WriteString(".\n")
	}
	content := builder.String()

	chunks := NewChunker().ChunkDocument(context.Background(), content)
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}

	counts := map[string]int{}
	for _, chunk := range chunks {
		counts[chunk.Kind]++
	}

	if counts[KindSmall] < 2 {
		t.Errorf("expected at least 2 small chunks, got %d", counts[KindSmall])
	}
	if counts[KindMedium] < 1 {
		t.Errorf("expected at least 1 medium chunk, got %d", counts[KindMedium])
	}
	if counts[KindLine] < 2 {
		t.Errorf("expected at least 2 line chunks, got %d", counts[KindLine])
	}
}

func TestChunkDocumentShortText(t *testing.T) {
	// Shorter than every character window: one chunk per pass.
	chunks := NewChunker().ChunkDocument(context.Background(), "The sky is blue. Water is wet.")

	var lineChunks, smallChunks int
	for _, chunk := range chunks {
		switch chunk.Kind {
		case KindLine:
			lineChunks++
			if chunk.StartLine != 1 {
				t.Errorf("expected line chunk to start at line 1, got %d", chunk.StartLine)
			}
		case KindSmall:
			smallChunks++
		}
		if !strings.Contains(chunk.Text, "sky is blue") {
			t.Errorf("expected chunk to contain source text, got %q", chunk.Text)
		}
	}

	if lineChunks < 1 {
		t.Error("expected at least one line chunk")
	}
	if smallChunks < 1 {
		t.Error("expected at least one small chunk")
	}
}

func TestChunkDocumentIndexesSequential(t *testing.T) {
	chunks := NewChunker().ChunkDocument(context.Background(), strings.Repeat("Some text here. ", 100))

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d", i, chunk.Index)
		}
	}
}

func TestChunkDocumentEmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty string", content: ""},
		{name: "whitespace only", content: "   \n\t\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewChunker().ChunkDocument(context.Background(), tt.content)
			if len(chunks) != 0 {
				t.Errorf("expected no chunks, got %d", len(chunks))
			}
		})
	}
}

func TestSplitSizedRespectsSizeAndBoundaries(t *testing.T) {
	paragraphs := []string{
		strings.Repeat("alpha ", 40),
		strings.Repeat("beta ", 40),
		strings.Repeat("gamma ", 40),
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := splitSized(text, 300, 150, KindSmall)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if runeCount := utf8.RuneCountInString(chunk.Text); runeCount > 300 {
			t.Errorf("chunk %d has %d runes, exceeds size limit", i, runeCount)
		}
		if chunk.Kind != KindSmall {
			t.Errorf("chunk %d has kind %q", i, chunk.Kind)
		}
	}
}

func TestSplitSizedOverlapCarriesContext(t *testing.T) {
	// A single unbroken word sequence forces hard cuts, and the overlap
	// means consecutive chunks share text.
	words := make([]string, 200)
	for i := range words {
		words[i] = "w" + strings.Repeat("o", i%5)
	}
	text := strings.Join(words, " ")

	chunks := splitSized(text, 100, 50, KindSmall)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Text
		if len(head) > 20 {
			head = head[:20]
		}
		if !strings.Contains(chunks[i-1].Text, head) {
			t.Fatalf("chunk %d does not overlap with chunk %d: head %q", i, i-1, head)
		}
	}
}

func TestSplitLinesWindows(t *testing.T) {
	lines := make([]string, 23)
	for i := range lines {
		lines[i] = strings.Repeat("line", i+1)
	}
	text := strings.Join(lines, "\n")

	chunks := splitLines(text, 10, 5)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 windows for 23 lines, got %d", len(chunks))
	}

	tests := []struct {
		start, end int
	}{
		{1, 10},
		{6, 15},
		{11, 20},
		{16, 23},
	}
	for i, want := range tests {
		got := chunks[i]
		if got.StartLine != want.start || got.EndLine != want.end {
			t.Errorf("window %d: got lines %d-%d, want %d-%d", i, got.StartLine, got.EndLine, want.start, want.end)
		}
		if got.Kind != KindLine {
			t.Errorf("window %d: got kind %q", i, got.Kind)
		}
	}
}

func TestSplitLinesSkipsBlankWindows(t *testing.T) {
	text := "content line\n\n\n\n\n\n\n\n\n\n\n\n\n\n\n\n\n\n\n"

	chunks := splitLines(text, 10, 5)
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			t.Errorf("blank window %d-%d should have been skipped", chunk.StartLine, chunk.EndLine)
		}
	}
}

func TestChunkPlain(t *testing.T) {
	text := strings.Repeat("Plain text content. ", 120)

	chunks := NewChunker().ChunkPlain(context.Background(), text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if chunk.Kind != KindText {
			t.Errorf("expected kind %q, got %q", KindText, chunk.Kind)
		}
	}
}
