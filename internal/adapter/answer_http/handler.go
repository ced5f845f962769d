package answer_http

import (
	"context"
	"errors"
	"net/http"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	pipeline usecase.AnswerPipelineUsecase
}

func NewHandler(pipeline usecase.AnswerPipelineUsecase) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes mounts the answer endpoints on the given echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/answer", h.Answer)
	e.POST("/v1/retrieve", h.Retrieve)
}

// AnswerRequest is the request payload for POST /v1/answer.
type AnswerRequest struct {
	Query              string  `json:"query"`
	TopKRetrieval      *int    `json:"top_k_retrieval,omitempty"`
	TopNFinal          *int    `json:"top_n_final,omitempty"`
	UseSemanticRanking *bool   `json:"use_semantic_ranking,omitempty"`
	SemanticConfigName *string `json:"semantic_config_name,omitempty"`
}

// SourceChunkResponse is one selected passage in an answer response.
type SourceChunkResponse struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	RetrievalType string  `json:"retrieval_type"`
}

// AnswerResponse is the response payload for POST /v1/answer.
type AnswerResponse struct {
	Answer       string                `json:"answer"`
	SourceChunks []SourceChunkResponse `json:"source_chunks"`
	Error        string                `json:"error,omitempty"`
}

// Answer a query over the knowledge base.
// (POST /v1/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	input := usecase.AnswerInput{
		Query: req.Query,
	}
	if req.TopKRetrieval != nil {
		input.TopKRetrieval = *req.TopKRetrieval
	}
	if req.TopNFinal != nil {
		input.TopNFinal = *req.TopNFinal
	}
	if req.UseSemanticRanking != nil {
		input.UseSemanticRanking = *req.UseSemanticRanking
	}
	if req.SemanticConfigName != nil {
		input.SemanticConfigName = *req.SemanticConfigName
	}

	output, err := h.pipeline.GetAnswer(ctx.Request().Context(), input)
	if err != nil {
		return h.answerError(ctx, output, err)
	}

	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer:       output.Answer,
		SourceChunks: toChunkResponses(output.SourceChunks),
	})
}

// answerError maps pipeline failures onto HTTP statuses. A generation
// failure still carries the retrieved chunks so the caller can degrade to a
// search-style result.
func (h *Handler) answerError(ctx echo.Context, output *usecase.AnswerOutput, err error) error {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": cfgErr.Error()})
	}

	if errors.Is(err, domain.ErrAllBackendsUnavailable) {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search backends unavailable"})
	}

	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		resp := AnswerResponse{Error: "answer generation failed"}
		if output != nil {
			resp.SourceChunks = toChunkResponses(output.SourceChunks)
		}
		return ctx.JSON(http.StatusBadGateway, resp)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.JSON(http.StatusRequestTimeout, map[string]string{"error": "request cancelled"})
	}

	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// RetrieveRequest is the request payload for POST /v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// RetrieveResponse is the response payload for POST /v1/retrieve.
type RetrieveResponse struct {
	SourceChunks []SourceChunkResponse `json:"source_chunks"`
}

// Retrieve ranked chunks for a query without generation.
// (POST /v1/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req RetrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
	}

	chunks, err := h.pipeline.Retrieve(ctx.Request().Context(), req.Query, topK)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": cfgErr.Error()})
		}
		if errors.Is(err, domain.ErrAllBackendsUnavailable) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search backends unavailable"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, RetrieveResponse{
		SourceChunks: toChunkResponses(chunks),
	})
}

func toChunkResponses(chunks []usecase.SourceChunk) []SourceChunkResponse {
	out := make([]SourceChunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = SourceChunkResponse{
			ID:            c.ID,
			Content:       c.Content,
			Score:         c.Score,
			RetrievalType: string(c.RetrievalType),
		}
	}
	return out
}
