package indexer

import (
	"context"
	"strings"
	"unicode/utf8"

	"docsage/internal/contextutil"
)

// Character-window sizes in runes. The small pass favors retrieval
// precision, the medium pass preserves surrounding context, and the plain
// pass is a coarse fallback for content that is not worth a multi-pass.
const (
	smallChunkSize     = 300
	smallChunkOverlap  = 150
	mediumChunkSize    = 800
	mediumChunkOverlap = 200
	plainChunkSize     = 1000
	plainChunkOverlap  = 200

	lineWindow = 10
	lineStride = 5
)

// Chunker splits document content into overlapping chunks at three
// granularities. A panic inside any pass is absorbed and reported as an
// empty chunk set so one malformed document never takes down an ingest.
type Chunker struct{}

// NewChunker creates a new chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// ChunkDocument runs all three passes over the content and returns the
// combined chunks with sequential indexes. An empty result is valid and
// means the content produced nothing worth indexing.
func (c *Chunker) ChunkDocument(ctx context.Context, content string) (chunks []Chunk) {
	logger := contextutil.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("chunker panicked, dropping chunks for document", "panic", r)
			chunks = []Chunk{}
		}
	}()

	if strings.TrimSpace(content) == "" {
		return []Chunk{}
	}

	chunks = append(chunks, splitSized(content, smallChunkSize, smallChunkOverlap, KindSmall)...)
	chunks = append(chunks, splitSized(content, mediumChunkSize, mediumChunkOverlap, KindMedium)...)
	chunks = append(chunks, splitLines(content, lineWindow, lineStride)...)

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// ChunkPlain runs a single coarse pass, used for content where the
// multi-granularity passes add no value.
func (c *Chunker) ChunkPlain(ctx context.Context, content string) (chunks []Chunk) {
	logger := contextutil.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("chunker panicked, dropping chunks for document", "panic", r)
			chunks = []Chunk{}
		}
	}()

	if strings.TrimSpace(content) == "" {
		return []Chunk{}
	}

	chunks = splitSized(content, plainChunkSize, plainChunkOverlap, KindText)
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// splitSized splits text into chunks of at most size runes with the given
// overlap between consecutive chunks. Split points prefer paragraph
// boundaries, then line boundaries, then sentence boundaries, falling back
// to a hard cut. Size is measured in runes for consistency with embedding
// token estimation.
func splitSized(text string, size, overlap int, kind string) []Chunk {
	textRunes := []rune(text)
	if len(textRunes) <= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []Chunk{{Kind: kind, Text: trimmed}}
	}

	var chunks []Chunk
	start := 0

	for start < len(textRunes) {
		end := start + size

		if end >= len(textRunes) {
			piece := strings.TrimSpace(string(textRunes[start:]))
			if piece != "" {
				chunks = append(chunks, Chunk{Kind: kind, Text: piece})
			}
			break
		}

		searchText := string(textRunes[start:end])
		splitPoint := end
		if paragraphBoundary := strings.LastIndex(searchText, "\n\n"); paragraphBoundary != -1 {
			splitPoint = start + utf8.RuneCountInString(searchText[:paragraphBoundary]) + 2
		} else if newlineBoundary := strings.LastIndex(searchText, "\n"); newlineBoundary != -1 {
			splitPoint = start + utf8.RuneCountInString(searchText[:newlineBoundary]) + 1
		} else if sentenceBoundary := strings.LastIndex(searchText, ". "); sentenceBoundary != -1 {
			splitPoint = start + utf8.RuneCountInString(searchText[:sentenceBoundary]) + 2
		}

		piece := strings.TrimSpace(string(textRunes[start:splitPoint]))
		if piece != "" {
			chunks = append(chunks, Chunk{Kind: kind, Text: piece})
		}

		next := splitPoint - overlap
		if next <= start {
			next = splitPoint
		}
		start = next
	}

	return chunks
}

// splitLines splits text into overlapping windows of whole lines so that
// answers can cite exact line ranges. StartLine and EndLine are 1-based
// inclusive. Windows that contain only whitespace are skipped.
func splitLines(text string, window, stride int) []Chunk {
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	for start := 0; start < len(lines); start += stride {
		end := start + window
		if end > len(lines) {
			end = len(lines)
		}

		windowText := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(windowText) != "" {
			chunks = append(chunks, Chunk{
				Kind:      KindLine,
				StartLine: start + 1,
				EndLine:   end,
				Text:      windowText,
			})
		}

		if end == len(lines) {
			break
		}
	}

	return chunks
}
