package search_http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalClient_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "golang concurrency", r.URL.Query().Get("q"))
		assert.Equal(t, "15", r.URL.Query().Get("limit"))

		resp := searchResponse{
			Query: "golang concurrency",
			Hits: []searchHit{
				{ID: "doc-1", Content: "goroutines and channels", Score: 12.4},
				{ID: "doc-2", Content: "sync primitives", Score: 9.1},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, 10*time.Second)

	hits, err := client.Search(context.Background(), "golang concurrency", 15)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-1", hits[0].ID)
	assert.Equal(t, "goroutines and channels", hits[0].Content)
	assert.Equal(t, 12.4, hits[0].Score)
}

func TestLexicalClient_Search_EmptyHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Query: "q", Hits: []searchHit{}})
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, 10*time.Second)

	hits, err := client.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalClient_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, 10*time.Second)

	hits, err := client.Search(context.Background(), "q", 10)
	assert.Error(t, err)
	assert.Nil(t, hits)
	assert.Contains(t, err.Error(), "502")
}

func TestLexicalClient_Search_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, "q", 10)
	assert.Error(t, err)
}

func TestLexicalClient_Name(t *testing.T) {
	client := NewLexicalClient("http://localhost:9300", 10*time.Second)
	assert.Equal(t, "lexical", client.Name())
}
