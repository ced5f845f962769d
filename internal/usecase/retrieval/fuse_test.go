package retrieval_test

import (
	"testing"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hits(ids ...string) []domain.BackendHit {
	out := make([]domain.BackendHit, len(ids))
	for i, id := range ids {
		out[i] = domain.BackendHit{ID: id, Content: "content of " + id, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestFuse_Deterministic(t *testing.T) {
	vector := hits("a", "b", "c")
	lexical := hits("c", "d", "a")

	first := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)
	second := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].FusedScore, second[i].FusedScore)
	}
}

func TestFuse_DeduplicatesAndTagsHybrid(t *testing.T) {
	vector := hits("a", "b")
	lexical := hits("b", "c")

	fused := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)
	require.Len(t, fused, 3)

	byID := make(map[string]domain.ScoredDocument)
	for _, d := range fused {
		byID[d.ID] = d
	}
	assert.Equal(t, domain.RetrievalTypeVector, byID["a"].RetrievalType)
	assert.Equal(t, domain.RetrievalTypeHybrid, byID["b"].RetrievalType)
	assert.Equal(t, domain.RetrievalTypeLexical, byID["c"].RetrievalType)

	// Scores sum across lists: b is rank 2 in vector and rank 1 in lexical.
	wantB := 1.0/(60.0+2) + 1.0/(60.0+1)
	assert.InDelta(t, wantB, byID["b"].FusedScore, 1e-12)

	// b appears in both lists, so it outranks everything found only once.
	assert.Equal(t, "b", fused[0].ID)
}

func TestFuse_ContentTakenFromVectorSide(t *testing.T) {
	vector := []domain.BackendHit{{ID: "x", Content: "vector copy"}}
	lexical := []domain.BackendHit{{ID: "x", Content: "lexical copy"}}

	fused := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)
	require.Len(t, fused, 1)
	assert.Equal(t, "vector copy", fused[0].Content)
	assert.Equal(t, domain.RetrievalTypeHybrid, fused[0].RetrievalType)
}

func TestFuse_EmptyInputs(t *testing.T) {
	assert.Empty(t, retrieval.Fuse(nil, nil, retrieval.DefaultRankOffset))

	onlyVector := retrieval.Fuse(hits("a", "b"), nil, retrieval.DefaultRankOffset)
	require.Len(t, onlyVector, 2)
	assert.Equal(t, "a", onlyVector[0].ID)
	assert.Equal(t, domain.RetrievalTypeVector, onlyVector[0].RetrievalType)

	onlyLexical := retrieval.Fuse(nil, hits("c"), retrieval.DefaultRankOffset)
	require.Len(t, onlyLexical, 1)
	assert.Equal(t, domain.RetrievalTypeLexical, onlyLexical[0].RetrievalType)
}

func TestFuse_TieBreakOrder(t *testing.T) {
	// Same rank in disjoint lists gives identical fused scores; the tie
	// breaks by vector rank, then lexically by ID.
	vector := hits("v2", "v1")
	lexical := hits("l2", "l1")

	fused := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)
	require.Len(t, fused, 4)

	// Rank-1 pair first: vector-side doc wins over lexical-only doc.
	assert.Equal(t, "v2", fused[0].ID)
	assert.Equal(t, "l2", fused[1].ID)
	assert.Equal(t, "v1", fused[2].ID)
	assert.Equal(t, "l1", fused[3].ID)
}

func TestFuse_RankOffsetFlattensSingleListDominance(t *testing.T) {
	// A document ranked #1 in only one backend should stay competitive with
	// a document ranked mid-list in both.
	vector := hits("only-top", "both", "v3", "v4", "v5")
	lexical := hits("l1", "both", "l3")

	fused := retrieval.Fuse(vector, lexical, retrieval.DefaultRankOffset)
	byID := make(map[string]domain.ScoredDocument)
	for _, d := range fused {
		byID[d.ID] = d
	}

	// "both" (rank 2 + rank 2) beats "only-top" (rank 1 once), but not by
	// orders of magnitude thanks to the rank offset.
	assert.Greater(t, byID["both"].FusedScore, byID["only-top"].FusedScore)
	assert.Greater(t, byID["only-top"].FusedScore, byID["both"].FusedScore/2)
}

func TestFuse_NoFinalScoreAtFusionTime(t *testing.T) {
	fused := retrieval.Fuse(hits("a"), hits("b"), retrieval.DefaultRankOffset)
	for _, d := range fused {
		assert.Nil(t, d.FinalScore)
		assert.Positive(t, d.FusedScore)
	}
}
