package di

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"answer-orchestrator/internal/adapter/ollama"
	"answer-orchestrator/internal/adapter/rerank_http"
	"answer-orchestrator/internal/adapter/repository"
	"answer-orchestrator/internal/adapter/search_http"
	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra/config"
	"answer-orchestrator/internal/infra/httpclient"
	"answer-orchestrator/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Pipeline usecase.AnswerPipelineUsecase
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(cfg.EmbedTimeout)
	generatorHTTP := httpclient.NewPooledClient(cfg.GenerationTimeout)
	lexicalHTTP := httpclient.NewPooledClient(cfg.LexicalSearchTimeout)

	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbedTimeout, embedderHTTP)
	generator := ollama.NewGenerator(cfg.OllamaURL, cfg.GenerationModel, cfg.GenerationTimeout, generatorHTTP)

	vectorBackend := repository.NewChunkSearchRepository(pool, embedder)
	lexicalBackend := search_http.NewLexicalClient(cfg.LexicalSearchURL, cfg.LexicalSearchTimeout, lexicalHTTP)

	var reranker domain.Reranker
	if cfg.RerankerURL != "" {
		rerankHTTP := httpclient.NewPooledClient(cfg.RerankTimeout)
		reranker = rerank_http.NewRerankerClient(cfg.RerankerURL, cfg.RerankerModel, cfg.RerankTimeout, log, rerankHTTP)
		log.Info("reranker_enabled",
			slog.String("url", cfg.RerankerURL),
			slog.String("model", cfg.RerankerModel))
	}

	pipeline := usecase.NewAnswerPipeline(
		vectorBackend, lexicalBackend, reranker, generator,
		usecase.PipelineConfig{
			TopKRetrieval:      cfg.TopKRetrieval,
			TopNFinal:          cfg.TopNFinal,
			RankOffset:         cfg.RankOffset,
			UseSemanticRanking: cfg.UseSemanticRanking,
			SemanticConfigName: cfg.SemanticConfigName,
			VectorTimeout:      cfg.VectorSearchTimeout,
			LexicalTimeout:     cfg.LexicalSearchTimeout,
			RerankTimeout:      cfg.RerankTimeout,
			GenerationTimeout:  cfg.GenerationTimeout,
			CacheSize:          cfg.AnswerCacheSize,
			CacheTTL:           cfg.AnswerCacheTTL,
		},
		log,
	)

	return &ApplicationComponents{
		Pipeline: pipeline,
	}
}
