package domain

import "context"

// RerankCandidate is one document submitted for cross-encoder scoring.
type RerankCandidate struct {
	// ID is the opaque document identifier, used to map results back.
	ID string
	// Content is the text scored against the query.
	Content string
}

// RerankResult is one scored document from the reranker.
type RerankResult struct {
	ID    string
	Score float64
}

// Reranker re-scores a bounded candidate set against the query.
//
// The response may be any subset of the candidates, in any order: the
// backing service filters candidates server-side and is permitted to drop
// documents it could not address. Callers must never assume completeness.
type Reranker interface {
	// Rerank scores candidates against the query. profile selects the
	// semantic configuration for this call; empty means the client default.
	Rerank(ctx context.Context, query, profile string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string

	// Close releases the client connection. Must be idempotent.
	Close(ctx context.Context) error
}
