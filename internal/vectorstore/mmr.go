package vectorstore

import "math"

// mmrCandidate is one entry in the MMR selection pool.
type mmrCandidate struct {
	score float32   // Relevance to the query
	vec   []float32 // Candidate vector, used for pairwise similarity
}

// mmrSelect picks up to k candidates by maximal marginal relevance: each
// round selects the candidate maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToAlreadySelected
//
// Returns the chosen candidate indexes in selection order. Candidates are
// expected to be ordered by descending relevance so that ties fall to the
// earlier (more relevant, earlier-inserted) entry.
func mmrSelect(candidates []mmrCandidate, k int, lambda float32) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]int, 0, k)
	chosen := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestScore := float32(math.Inf(-1))

		for i, cand := range candidates {
			if chosen[i] {
				continue
			}

			var maxSim float32
			for _, s := range selected {
				if sim := CosineSimilarity(cand.vec, candidates[s].vec); sim > maxSim {
					maxSim = sim
				}
			}

			mmr := lambda*cand.score - (1-lambda)*maxSim
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		chosen[bestIdx] = true
		selected = append(selected, bestIdx)
	}

	return selected
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
