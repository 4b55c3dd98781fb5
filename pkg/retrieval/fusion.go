package retrieval

import "sort"

// fusedCandidate is one candidate surviving reciprocal-rank fusion, before
// page content has been hydrated.
type fusedCandidate struct {
	pageID         string
	score          float64
	vectorDistance float64
	hasVector      bool
	hasText        bool
	rerank         bool

	// populated by hydrate, used for Result construction and tie-breaks.
	sourceID    string
	url         string
	chunkNumber int
	content     string
}

// fuseRRF combines a vector ranking and a lexical ranking into one list,
// scored by reciprocal-rank fusion: rrf = sum(1 / (k + rank_i)) across the
// rankings a candidate appears in, using missingRank for the ranking it's
// absent from. Candidates are returned in first-seen order (vector hits,
// then text-only hits), not sorted by score.
func fuseRRF(vectorHits []rankedHit, textHits []rankedHit, k, missingRank int) []fusedCandidate {
	vectorRank := make(map[string]int, len(vectorHits))
	vectorDist := make(map[string]float64, len(vectorHits))
	for i, h := range vectorHits {
		vectorRank[h.id] = i + 1
		vectorDist[h.id] = h.score
	}
	textRank := make(map[string]int, len(textHits))
	for i, h := range textHits {
		textRank[h.id] = i + 1
	}

	seen := make(map[string]bool, len(vectorHits)+len(textHits))
	var ids []string
	for _, h := range vectorHits {
		if !seen[h.id] {
			seen[h.id] = true
			ids = append(ids, h.id)
		}
	}
	for _, h := range textHits {
		if !seen[h.id] {
			seen[h.id] = true
			ids = append(ids, h.id)
		}
	}

	candidates := make([]fusedCandidate, 0, len(ids))
	for _, id := range ids {
		vr, hasVector := vectorRank[id]
		tr, hasText := textRank[id]
		if !hasVector {
			vr = missingRank
		}
		if !hasText {
			tr = missingRank
		}
		score := 1/float64(k+vr) + 1/float64(k+tr)
		candidates = append(candidates, fusedCandidate{
			pageID:         id,
			score:          score,
			vectorDistance: vectorDist[id],
			hasVector:      hasVector,
			hasText:        hasText,
		})
	}

	return candidates
}

// sortFused orders candidates by the tie-break chain below; callers sort
// once after hydrating page metadata (chunk_number) and again after
// rerank scores replace fusion scores.
func sortFused(candidates []fusedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankLess(candidates[i], candidates[j])
	})
}

// rankLess orders candidates by a fixed tie-break chain: higher score
// wins; then higher vector similarity (lower distance); then lower
// chunk_number; then lexicographic id.
func rankLess(a, b fusedCandidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.vectorDistance != b.vectorDistance {
		return a.vectorDistance < b.vectorDistance
	}
	if a.chunkNumber != b.chunkNumber {
		return a.chunkNumber < b.chunkNumber
	}
	return a.pageID < b.pageID
}

// rankedHit is the minimal shape fuseRRF needs from either backend's
// candidate list: an id in rank order, plus a backend-specific raw score
// (cosine distance for vector, ts_rank for text — unused by fusion itself,
// carried through for vector tie-breaks).
type rankedHit struct {
	id    string
	score float64
}

func (c fusedCandidate) matchType() MatchType {
	switch {
	case c.hasVector && c.hasText:
		return MatchHybrid
	case c.hasText:
		return MatchText
	default:
		return MatchVector
	}
}
