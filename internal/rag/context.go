package rag

import (
	"fmt"
	"strings"

	"docsage/internal/indexer"
	"docsage/internal/retriever"
)

// chunkDelimiter separates rendered chunks in the assembled context.
const chunkDelimiter = "\n\n---\n\n"

// FormatContext renders retrieved chunks into a single prompt-ready
// string. Each chunk gets a positional header, numbered 1..N in the
// order given, so the same input sequence always produces the same
// context. Line chunks carry their line range in the header, other
// kinds carry the kind label.
//
// The headers are internal bookkeeping only; Sanitize strips any that
// leak into a generated answer.
func FormatContext(chunks []retriever.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var header string
		if chunk.Kind == indexer.KindLine && chunk.StartLine > 0 {
			header = fmt.Sprintf("[CHUNK %d - LINES %d-%d]", i+1, chunk.StartLine, chunk.EndLine)
		} else {
			header = fmt.Sprintf("[CHUNK %d - TYPE: %s]", i+1, chunk.Kind)
		}
		parts = append(parts, header+"\n"+chunk.Text)
	}

	return strings.Join(parts, chunkDelimiter)
}
