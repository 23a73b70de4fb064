package rag

import (
	"regexp"
	"strings"
)

// Patterns for bookkeeping artifacts the model may echo back from the
// assembled context, despite being instructed not to.
var (
	bracketChunkRe = regexp.MustCompile(`(?i)\[CHUNK\s+\d+[^\]]*\]`)
	parenChunkRe   = regexp.MustCompile(`(?i)\([^()]*\bCHUNK\s+\d+[^()]*\)`)
	phraseChunkRe  = regexp.MustCompile(`(?i)\b(?:as (?:seen|mentioned|shown) in|according to|based on|from|in)\s+chunk\s+\d+\b`)
	bareChunkRe    = regexp.MustCompile(`(?i)\bchunk\s+\d+\b`)

	spaceBeforePunctRe = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	spaceRunRe         = regexp.MustCompile(`[ \t]{2,}`)
	newlineRunRe       = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips context-assembly artifacts from a generated answer:
// bracketed headers, parenthetical chunk citations, and bare chunk
// references, in that order. Whitespace left behind by the removals is
// collapsed and the result trimmed. Sanitizing an already-clean answer
// is a no-op apart from whitespace normalization.
func Sanitize(answer string) string {
	cleaned := bracketChunkRe.ReplaceAllString(answer, "")
	cleaned = parenChunkRe.ReplaceAllString(cleaned, "")
	cleaned = phraseChunkRe.ReplaceAllString(cleaned, "")
	cleaned = bareChunkRe.ReplaceAllString(cleaned, "")

	cleaned = spaceBeforePunctRe.ReplaceAllString(cleaned, "$1")
	cleaned = spaceRunRe.ReplaceAllString(cleaned, " ")
	cleaned = newlineRunRe.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}
