package domain

import "context"

// SearchBackend is one retrieval backend (dense or lexical). Implementations
// return at most k hits ordered best-first.
type SearchBackend interface {
	// Name identifies the backend in logs and errors ("vector", "lexical").
	Name() string

	// Search runs one query against the backend. A blank query returns an
	// empty list.
	Search(ctx context.Context, query string, k int) ([]BackendHit, error)

	// Close releases backend connections. Must be idempotent.
	Close(ctx context.Context) error
}

// VectorEncoder turns text into embedding vectors for dense search.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
	Close(ctx context.Context) error
}
