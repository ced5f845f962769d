package answer_http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"answer-orchestrator/internal/adapter/answer_http"
	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) GetAnswer(ctx context.Context, input usecase.AnswerInput) (*usecase.AnswerOutput, error) {
	args := m.Called(ctx, input)
	var out *usecase.AnswerOutput
	if args.Get(0) != nil {
		out = args.Get(0).(*usecase.AnswerOutput)
	}
	return out, args.Error(1)
}

func (m *MockPipeline) Retrieve(ctx context.Context, query string, topK int) ([]usecase.SourceChunk, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.SourceChunk), args.Error(1)
}

func (m *MockPipeline) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func doRequest(t *testing.T, pipeline *MockPipeline, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	answer_http.NewHandler(pipeline).RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnswer_Success(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("GetAnswer", mock.Anything, mock.Anything).Return(&usecase.AnswerOutput{
		Answer: "the answer",
		SourceChunks: []usecase.SourceChunk{
			{ID: "c1", Content: "chunk one", Score: 0.9, RetrievalType: domain.RetrievalTypeHybrid},
		},
	}, nil)

	rec := doRequest(t, pipeline, "/v1/answer", `{"query":"what is fusion"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answer_http.AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Answer)
	require.Len(t, resp.SourceChunks, 1)
	assert.Equal(t, "c1", resp.SourceChunks[0].ID)
	assert.Equal(t, "hybrid", resp.SourceChunks[0].RetrievalType)
}

func TestAnswer_ForwardsOverrides(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("GetAnswer", mock.Anything, usecase.AnswerInput{
		Query:              "q",
		TopKRetrieval:      30,
		TopNFinal:          3,
		UseSemanticRanking: true,
		SemanticConfigName: "default-semantic",
	}).Return(&usecase.AnswerOutput{Answer: "ok", SourceChunks: []usecase.SourceChunk{}}, nil)

	rec := doRequest(t, pipeline, "/v1/answer",
		`{"query":"q","top_k_retrieval":30,"top_n_final":3,"use_semantic_ranking":true,"semantic_config_name":"default-semantic"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	pipeline.AssertExpectations(t)
}

func TestAnswer_ConfigurationErrorIsBadRequest(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("GetAnswer", mock.Anything, mock.Anything).
		Return(nil, &domain.ConfigurationError{Reason: "top_n_final must be positive"})

	rec := doRequest(t, pipeline, "/v1/answer", `{"query":"q","top_n_final":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "top_n_final")
}

func TestAnswer_BackendsUnavailableIsServiceUnavailable(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("GetAnswer", mock.Anything, mock.Anything).
		Return(nil, errors.Join(
			domain.ErrAllBackendsUnavailable,
			&domain.BackendUnavailableError{Backend: "vector", Err: errors.New("down")},
		))

	rec := doRequest(t, pipeline, "/v1/answer", `{"query":"q"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnswer_GenerationFailureCarriesChunks(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("GetAnswer", mock.Anything, mock.Anything).
		Return(&usecase.AnswerOutput{
			SourceChunks: []usecase.SourceChunk{
				{ID: "c1", Content: "still useful", Score: 0.5, RetrievalType: domain.RetrievalTypeVector},
			},
		}, &domain.GenerationError{Err: errors.New("model overloaded")})

	rec := doRequest(t, pipeline, "/v1/answer", `{"query":"q"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp answer_http.AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Answer)
	assert.NotEmpty(t, resp.Error)
	require.Len(t, resp.SourceChunks, 1)
	assert.Equal(t, "c1", resp.SourceChunks[0].ID)
}

func TestAnswer_InvalidBodyIsBadRequest(t *testing.T) {
	pipeline := new(MockPipeline)

	rec := doRequest(t, pipeline, "/v1/answer", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	pipeline.AssertNotCalled(t, "GetAnswer", mock.Anything, mock.Anything)
}

func TestRetrieve_Success(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("Retrieve", mock.Anything, "q", 7).Return([]usecase.SourceChunk{
		{ID: "a", Content: "alpha", Score: 0.4, RetrievalType: domain.RetrievalTypeLexical},
		{ID: "b", Content: "beta", Score: 0.3, RetrievalType: domain.RetrievalTypeVector},
	}, nil)

	rec := doRequest(t, pipeline, "/v1/retrieve", `{"query":"q","top_k":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answer_http.RetrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SourceChunks, 2)
	assert.Equal(t, "a", resp.SourceChunks[0].ID)
}

func TestRetrieve_BackendsUnavailable(t *testing.T) {
	pipeline := new(MockPipeline)
	pipeline.On("Retrieve", mock.Anything, "q", 0).
		Return(nil, errors.Join(domain.ErrAllBackendsUnavailable))

	rec := doRequest(t, pipeline, "/v1/retrieve", `{"query":"q"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
