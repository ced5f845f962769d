package retrieval

import (
	"math"
	"sort"

	"answer-orchestrator/internal/domain"
)

// DefaultRankOffset is the RRF smoothing constant. 60 flattens the curve so
// a document ranked very highly in one backend is not automatically dominated
// by a document ranked mid-list in both.
const DefaultRankOffset = 60.0

type fusedEntry struct {
	doc        domain.ScoredDocument
	vectorRank int
	inVector   bool
	inLexical  bool
}

// Fuse merges two independently ranked hit lists into one deduplicated list
// using reciprocal-rank fusion: each list contributes 1/(rankOffset+position)
// per document (position is 1-based), summed across lists.
//
// The vector list is processed first, so content for documents present in
// both lists is taken from the vector side. Output order is fully
// deterministic for identical inputs.
func Fuse(vectorResults, lexicalResults []domain.BackendHit, rankOffset float64) []domain.ScoredDocument {
	if rankOffset <= 0 {
		rankOffset = DefaultRankOffset
	}

	entries := make(map[string]*fusedEntry, len(vectorResults)+len(lexicalResults))

	for i, hit := range vectorResults {
		rank := i + 1
		e, ok := entries[hit.ID]
		if !ok {
			e = &fusedEntry{
				doc: domain.ScoredDocument{
					ID:            hit.ID,
					Content:       hit.Content,
					RetrievalType: domain.RetrievalTypeVector,
				},
				vectorRank: rank,
			}
			entries[hit.ID] = e
		}
		e.inVector = true
		e.doc.FusedScore += 1.0 / (rankOffset + float64(rank))
	}

	for i, hit := range lexicalResults {
		rank := i + 1
		e, ok := entries[hit.ID]
		if !ok {
			e = &fusedEntry{
				doc: domain.ScoredDocument{
					ID:            hit.ID,
					Content:       hit.Content,
					RetrievalType: domain.RetrievalTypeLexical,
				},
				vectorRank: math.MaxInt32,
			}
			entries[hit.ID] = e
		} else if e.inVector {
			e.doc.RetrievalType = domain.RetrievalTypeHybrid
		}
		e.inLexical = true
		e.doc.FusedScore += 1.0 / (rankOffset + float64(rank))
	}

	fused := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		fused = append(fused, e)
	}

	// Equal fused scores break deterministically: hybrid provenance first,
	// then original vector rank, then ID.
	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.doc.FusedScore != b.doc.FusedScore {
			return a.doc.FusedScore > b.doc.FusedScore
		}
		aHybrid := a.doc.RetrievalType == domain.RetrievalTypeHybrid
		bHybrid := b.doc.RetrievalType == domain.RetrievalTypeHybrid
		if aHybrid != bHybrid {
			return aHybrid
		}
		if a.vectorRank != b.vectorRank {
			return a.vectorRank < b.vectorRank
		}
		return a.doc.ID < b.doc.ID
	})

	out := make([]domain.ScoredDocument, len(fused))
	for i, e := range fused {
		out[i] = e.doc
	}
	return out
}
