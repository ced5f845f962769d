package domain

import "context"

// Generator synthesizes a final answer from the query and the selected
// passages, which arrive in rank order.
type Generator interface {
	Generate(ctx context.Context, query string, passages []string) (string, error)
	Version() string
	Close(ctx context.Context) error
}
