package search_http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"answer-orchestrator/internal/domain"
)

// LexicalClient implements domain.SearchBackend against the keyword search
// service. Hits come back already ranked by the service's BM25 scoring.
type LexicalClient struct {
	BaseURL string
	Client  *http.Client
}

func NewLexicalClient(baseURL string, timeout time.Duration, client ...*http.Client) *LexicalClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c = &http.Client{Timeout: timeout}
	}
	return &LexicalClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  c,
	}
}

type searchResponse struct {
	Query string      `json:"query"`
	Hits  []searchHit `json:"hits"`
}

type searchHit struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func (c *LexicalClient) Name() string {
	return "lexical"
}

func (c *LexicalClient) Search(ctx context.Context, query string, k int) ([]domain.BackendHit, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/search", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(k))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status: %d", resp.StatusCode)
	}

	var sResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]domain.BackendHit, len(sResp.Hits))
	for i, h := range sResp.Hits {
		hits[i] = domain.BackendHit{
			ID:      h.ID,
			Content: h.Content,
			Score:   h.Score,
		}
	}

	return hits, nil
}

func (c *LexicalClient) Close(_ context.Context) error {
	c.Client.CloseIdleConnections()
	return nil
}

var _ domain.SearchBackend = (*LexicalClient)(nil)
