package domain

// RetrievalType tags which backend(s) produced a document.
type RetrievalType string

const (
	// RetrievalTypeVector marks documents found only by dense search.
	RetrievalTypeVector RetrievalType = "vector"
	// RetrievalTypeLexical marks documents found only by keyword search.
	RetrievalTypeLexical RetrievalType = "lexical"
	// RetrievalTypeHybrid marks documents found by both backends.
	RetrievalTypeHybrid RetrievalType = "hybrid"
)

// BackendHit is a single ranked result from one retrieval backend.
type BackendHit struct {
	// ID is an opaque identifier. It may contain commas, quotes, or any
	// other character; nothing downstream may embed it unescaped into a
	// filter expression.
	ID string
	// Content is the retrieved text snippet.
	Content string
	// Score is the backend-native relevance score (for debugging; fusion
	// ranks by position, not by this value).
	Score float64
}

// ScoredDocument is one fused candidate flowing through the pipeline.
type ScoredDocument struct {
	ID      string
	Content string

	// RetrievalType is set once at fusion time and never mutated.
	RetrievalType RetrievalType

	// FusedScore is the reciprocal-rank fusion score. Present on every
	// document after fusion and never removed by later stages.
	FusedScore float64

	// FinalScore is set only when the reranker actually returned a score
	// for this document. nil means the reranker omitted it, which is not
	// the same as a score of zero.
	FinalScore *float64
}

// Score returns the score callers should display: the reranker score when
// one exists, otherwise the fused score.
func (d ScoredDocument) Score() float64 {
	if d.FinalScore != nil {
		return *d.FinalScore
	}
	return d.FusedScore
}
