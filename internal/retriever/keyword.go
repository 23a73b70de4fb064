package retriever

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

var keywordStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {},
}

// KeywordRetriever scores an in-memory corpus lexically with TF-IDF over
// unigrams and bigrams. It serves deployments without an embedding
// provider and tests that need retrieval without network calls.
type KeywordRetriever struct {
	mu     sync.RWMutex
	byUser map[string][]Chunk
	params Params
}

// NewKeywordRetriever creates a keyword-based retriever.
func NewKeywordRetriever(params Params) *KeywordRetriever {
	return &KeywordRetriever{
		byUser: make(map[string][]Chunk),
		params: params.withDefaults(),
	}
}

// AddDocuments adds chunks to the user's corpus. Chunks without an ID
// get one. Re-adding a chunk with an existing ID overwrites it.
func (r *KeywordRetriever) AddDocuments(_ context.Context, userID string, chunks []Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.byUser[userID]
	byID := make(map[string]int, len(existing))
	for i, chunk := range existing {
		byID[chunk.ID] = i
	}

	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		if i, ok := byID[chunk.ID]; ok {
			existing[i] = chunk
			continue
		}
		byID[chunk.ID] = len(existing)
		existing = append(existing, chunk)
	}

	r.byUser[userID] = existing
	return nil
}

// Retrieve scores every chunk in the user's corpus against the query and
// returns the top matches above the score floor, capped at the same bound
// as the embedding retriever.
func (r *KeywordRetriever) Retrieve(_ context.Context, userID, query string) ([]Chunk, error) {
	queryTerms := queryTermSet(query)
	if len(queryTerms) == 0 {
		return []Chunk{}, nil
	}

	r.mu.RLock()
	corpus := r.byUser[userID]
	scored := make([]Chunk, 0, len(corpus))

	// Document frequency per query term, for IDF weighting.
	df := make(map[string]int, len(queryTerms))
	termsPerChunk := make([]map[string]int, len(corpus))
	for i, chunk := range corpus {
		terms := termFrequencies(chunk.Text)
		termsPerChunk[i] = terms
		for term := range queryTerms {
			if terms[term] > 0 {
				df[term]++
			}
		}
	}

	for i, chunk := range corpus {
		score := tfidfScore(queryTerms, termsPerChunk[i], df, len(corpus))
		if score >= r.params.ScoreFloor {
			chunk.Score = score
			chunk.Provenance = ProvenanceKeyword
			scored = append(scored, chunk)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	return dedupeByContent(scored, r.params.DiverseK+r.params.SimilarK), nil
}

// GetDocumentsForContext applies the same fallback policy as the
// embedding retriever: a thin result is replaced by the user's longest
// chunks, tagged as low-confidence.
func (r *KeywordRetriever) GetDocumentsForContext(ctx context.Context, userID, query string) ([]Chunk, error) {
	ranked, err := r.Retrieve(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	if len(ranked) > 0 && totalContentLength(ranked) >= r.params.MinContextChars {
		return ranked, nil
	}

	r.mu.RLock()
	corpus := make([]Chunk, len(r.byUser[userID]))
	copy(corpus, r.byUser[userID])
	r.mu.RUnlock()

	if len(corpus) == 0 {
		return ranked, nil
	}

	sort.SliceStable(corpus, func(a, b int) bool {
		return len(corpus[a].Text) > len(corpus[b].Text)
	})
	if len(corpus) > 3 {
		corpus = corpus[:3]
	}

	fallback := make([]Chunk, 0, len(corpus))
	for _, chunk := range corpus {
		chunk.Score = 0
		chunk.Provenance = ProvenanceFallback
		fallback = append(fallback, chunk)
	}
	return fallback, nil
}

// queryTermSet extracts the query's unigrams and bigrams, stopwords
// removed from unigrams.
func queryTermSet(query string) map[string]struct{} {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	terms := make(map[string]struct{})
	for _, token := range tokens {
		if _, isStop := keywordStopwords[token]; isStop {
			continue
		}
		terms[token] = struct{}{}
	}
	for i := 0; i+1 < len(tokens); i++ {
		terms[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// termFrequencies counts unigram and bigram occurrences in text.
func termFrequencies(text string) map[string]int {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]int, len(tokens)*2)
	for _, token := range tokens {
		freq[token]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		freq[tokens[i]+" "+tokens[i+1]]++
	}
	return freq
}

// tfidfScore computes a normalized TF-IDF overlap score in [0, 1].
func tfidfScore(queryTerms map[string]struct{}, chunkFreq map[string]int, df map[string]int, corpusSize int) float32 {
	if len(chunkFreq) == 0 || corpusSize == 0 {
		return 0
	}

	chunkLen := 0
	for _, count := range chunkFreq {
		chunkLen += count
	}

	var matched, total float64
	for term := range queryTerms {
		idf := math.Log(1 + float64(corpusSize)/float64(1+df[term]))
		total += idf
		if count := chunkFreq[term]; count > 0 {
			tf := float64(count) / float64(chunkLen)
			// Saturating term weight keeps one repeated token from
			// dominating the whole score.
			matched += idf * math.Min(1, tf*10)
		}
	}

	if total == 0 {
		return 0
	}
	return float32(matched / total)
}

// tokenize lowercases text and splits it into alphanumeric tokens.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
