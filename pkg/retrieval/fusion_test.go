package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRF_CombinesBothRankings(t *testing.T) {
	vector := []rankedHit{{id: "a", score: 0.1}, {id: "b", score: 0.2}, {id: "c", score: 0.3}}
	text := []rankedHit{{id: "b", score: 3.0}, {id: "a", score: 2.0}}

	fused := fuseRRF(vector, text, 60, 999)
	require.Len(t, fused, 3)

	byID := make(map[string]fusedCandidate, len(fused))
	for _, c := range fused {
		byID[c.pageID] = c
	}

	assert.True(t, byID["a"].hasVector && byID["a"].hasText)
	assert.True(t, byID["b"].hasVector && byID["b"].hasText)
	assert.True(t, byID["c"].hasVector && !byID["c"].hasText)

	// a: vector rank 1, text rank 2 -> 1/61 + 1/62
	// b: vector rank 2, text rank 1 -> 1/62 + 1/61 (same sum as a)
	assert.InDelta(t, byID["a"].score, byID["b"].score, 1e-9)
	// c only ranked in vector at rank 3, missing from text (999)
	assert.Less(t, byID["c"].score, byID["a"].score)
}

func TestFuseRRF_MissingFromOneRankingStillIncluded(t *testing.T) {
	vector := []rankedHit{{id: "only-vector", score: 0.05}}
	text := []rankedHit{{id: "only-text", score: 5.0}}

	fused := fuseRRF(vector, text, 60, 999)
	require.Len(t, fused, 2)

	ids := map[string]bool{}
	for _, c := range fused {
		ids[c.pageID] = true
	}
	assert.True(t, ids["only-vector"])
	assert.True(t, ids["only-text"])
}

func TestFuseRRF_AddingMissingDocDoesNotReorderOthers(t *testing.T) {
	vector := []rankedHit{{id: "a", score: 0.1}, {id: "b", score: 0.2}}
	text := []rankedHit{{id: "a", score: 2.0}, {id: "b", score: 1.0}}

	before := fuseRRF(vector, text, 60, 999)

	// Add a third candidate present in neither ranking's overlap in a way
	// that doesn't touch a/b's own ranks.
	vector2 := append(append([]rankedHit{}, vector...), rankedHit{id: "c", score: 0.9})
	after := fuseRRF(vector2, text, 60, 999)

	beforeOrder := []string{before[0].pageID, before[1].pageID}
	var afterAB []string
	for _, c := range after {
		if c.pageID == "a" || c.pageID == "b" {
			afterAB = append(afterAB, c.pageID)
		}
	}
	assert.Equal(t, beforeOrder, afterAB)
}

func TestRankLess_TieBreakChain(t *testing.T) {
	a := fusedCandidate{pageID: "z", score: 1.0, vectorDistance: 0.5, chunkNumber: 2}
	b := fusedCandidate{pageID: "a", score: 1.0, vectorDistance: 0.5, chunkNumber: 1}
	assert.True(t, rankLess(b, a), "lower chunk_number wins on a full tie")

	c := fusedCandidate{pageID: "a", score: 1.0, vectorDistance: 0.2, chunkNumber: 5}
	d := fusedCandidate{pageID: "z", score: 1.0, vectorDistance: 0.8, chunkNumber: 0}
	assert.True(t, rankLess(c, d), "higher vector similarity (lower distance) wins over chunk_number")

	e := fusedCandidate{pageID: "a", score: 2.0}
	f := fusedCandidate{pageID: "z", score: 1.0}
	assert.True(t, rankLess(e, f), "higher score wins outright")
}

func TestFusedCandidate_MatchType(t *testing.T) {
	assert.Equal(t, MatchHybrid, fusedCandidate{hasVector: true, hasText: true}.matchType())
	assert.Equal(t, MatchVector, fusedCandidate{hasVector: true}.matchType())
	assert.Equal(t, MatchText, fusedCandidate{hasText: true}.matchType())
}
