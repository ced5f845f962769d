package repository

import (
	"context"
	"errors"
	"fmt"

	"answer-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type chunkSearchRepository struct {
	pool    *pgxpool.Pool
	encoder domain.VectorEncoder
}

// NewChunkSearchRepository creates the vector search backend over the chunk
// store. The query text is embedded with the given encoder, then matched by
// cosine distance against stored embeddings.
func NewChunkSearchRepository(pool *pgxpool.Pool, encoder domain.VectorEncoder) domain.SearchBackend {
	return &chunkSearchRepository{pool: pool, encoder: encoder}
}

func (r *chunkSearchRepository) Name() string {
	return "vector"
}

func (r *chunkSearchRepository) Search(ctx context.Context, query string, k int) ([]domain.BackendHit, error) {
	embeddings, err := r.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, errors.New("encoder returned no embedding for query")
	}

	sql := `
		SELECT id, content, 1 - (embedding <=> $1) AS score
		FROM rag_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, sql, pgvector.NewVector(embeddings[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.BackendHit
	for rows.Next() {
		var h domain.BackendHit
		if err := rows.Scan(&h.ID, &h.Content, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

// Close releases the encoder and the connection pool. pgxpool tolerates
// repeated Close calls, so this stays idempotent.
func (r *chunkSearchRepository) Close(ctx context.Context) error {
	err := r.encoder.Close(ctx)
	r.pool.Close()
	return err
}

var _ domain.SearchBackend = (*chunkSearchRepository)(nil)
