package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

const (
	emptyQueryAnswer = "Please enter a question so I can search the knowledge base."
	noResultsAnswer  = "I could not find any relevant information in the knowledge base to answer your question."
)

// AnswerInput encapsulates the parameters that drive one answer request.
// Zero values for the numeric fields fall back to the pipeline defaults.
type AnswerInput struct {
	Query              string
	TopKRetrieval      int
	TopNFinal          int
	UseSemanticRanking bool
	SemanticConfigName string
}

// SourceChunk is one selected passage returned to callers.
type SourceChunk struct {
	ID            string
	Content       string
	Score         float64
	RetrievalType domain.RetrievalType
}

// AnswerOutput is the result of one answer request.
type AnswerOutput struct {
	Answer       string
	SourceChunks []SourceChunk
}

// PipelineConfig holds pipeline defaults resolved once at construction.
type PipelineConfig struct {
	TopKRetrieval      int
	TopNFinal          int
	RankOffset         float64
	UseSemanticRanking bool
	SemanticConfigName string

	VectorTimeout     time.Duration
	LexicalTimeout    time.Duration
	RerankTimeout     time.Duration
	GenerationTimeout time.Duration

	// CacheSize <= 0 disables the answer cache.
	CacheSize int
	CacheTTL  time.Duration
}

// AnswerPipelineUsecase is the contract the HTTP handler and CLI consume.
type AnswerPipelineUsecase interface {
	GetAnswer(ctx context.Context, input AnswerInput) (*AnswerOutput, error)
	Retrieve(ctx context.Context, query string, topK int) ([]SourceChunk, error)
	Close(ctx context.Context) error
}

type answerPipeline struct {
	vector    domain.SearchBackend
	lexical   domain.SearchBackend
	reranker  domain.Reranker
	generator domain.Generator
	cfg       PipelineConfig
	logger    *slog.Logger

	cache *expirable.LRU[string, *AnswerOutput]

	closeOnce sync.Once
	closeErr  error
}

// NewAnswerPipeline wires the pipeline from already-resolved client handles.
// Test doubles are injected through this same constructor; there is no side
// door. The reranker may be nil when semantic ranking is never requested.
func NewAnswerPipeline(
	vector, lexical domain.SearchBackend,
	reranker domain.Reranker,
	generator domain.Generator,
	cfg PipelineConfig,
	logger *slog.Logger,
) AnswerPipelineUsecase {
	p := &answerPipeline{
		vector:    vector,
		lexical:   lexical,
		reranker:  reranker,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
	if cfg.CacheSize > 0 {
		p.cache = expirable.NewLRU[string, *AnswerOutput](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return p
}

func (p *answerPipeline) GetAnswer(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return &AnswerOutput{Answer: emptyQueryAnswer, SourceChunks: []SourceChunk{}}, nil
	}

	topK, topN, profile, err := p.resolveParams(input)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s|%d|%d|%t|%s", input.Query, topK, topN, input.UseSemanticRanking, profile)
	if p.cache != nil {
		if cached, ok := p.cache.Get(cacheKey); ok {
			p.logger.Info("answer_cache_hit", slog.String("query", input.Query))
			return cached, nil
		}
	}

	retrievalID := uuid.NewString()
	ranked, err := p.retrieveRanked(ctx, retrievalID, input.Query, topK, input.UseSemanticRanking, profile)
	if err != nil {
		return nil, err
	}

	if len(ranked) == 0 {
		return &AnswerOutput{Answer: noResultsAnswer, SourceChunks: []SourceChunk{}}, nil
	}

	selected := ranked
	if len(selected) > topN {
		selected = selected[:topN]
	}
	chunks := toSourceChunks(selected)

	passages := make([]string, len(selected))
	for i, doc := range selected {
		passages[i] = doc.Content
	}

	genCtx := ctx
	if p.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.cfg.GenerationTimeout)
		defer cancel()
	}

	genStart := time.Now()
	answer, err := p.generator.Generate(genCtx, input.Query, passages)
	if err != nil {
		p.logger.Error("generation_failed",
			slog.String("retrieval_id", retrievalID),
			slog.String("error", err.Error()),
			slog.Int("chunk_count", len(chunks)),
			slog.Int64("duration_ms", time.Since(genStart).Milliseconds()))
		// The retrieved evidence is still useful to the caller.
		return &AnswerOutput{SourceChunks: chunks}, &domain.GenerationError{Err: err}
	}

	p.logger.Info("answer_generated",
		slog.String("retrieval_id", retrievalID),
		slog.Int("chunk_count", len(chunks)),
		slog.String("model", p.generator.Version()),
		slog.Int64("duration_ms", time.Since(genStart).Milliseconds()))

	out := &AnswerOutput{Answer: answer, SourceChunks: chunks}
	if p.cache != nil {
		p.cache.Add(cacheKey, out)
	}
	return out, nil
}

func (p *answerPipeline) Retrieve(ctx context.Context, query string, topK int) ([]SourceChunk, error) {
	if strings.TrimSpace(query) == "" {
		return []SourceChunk{}, nil
	}
	if topK <= 0 {
		topK = p.cfg.TopKRetrieval
	}
	if topK <= 0 {
		return nil, &domain.ConfigurationError{Reason: "top_k_retrieval must be positive"}
	}

	profile := p.cfg.SemanticConfigName
	useSemantic := p.cfg.UseSemanticRanking && p.reranker != nil && profile != ""

	ranked, err := p.retrieveRanked(ctx, uuid.NewString(), query, topK, useSemantic, profile)
	if err != nil {
		return nil, err
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return toSourceChunks(ranked), nil
}

// resolveParams applies configured defaults and runs the pre-flight checks
// that must fail before any backend call.
func (p *answerPipeline) resolveParams(input AnswerInput) (topK, topN int, profile string, err error) {
	topK = input.TopKRetrieval
	if topK <= 0 {
		topK = p.cfg.TopKRetrieval
	}
	topN = input.TopNFinal
	if topN <= 0 {
		topN = p.cfg.TopNFinal
	}
	if topK <= 0 {
		return 0, 0, "", &domain.ConfigurationError{Reason: "top_k_retrieval must be positive"}
	}
	if topN <= 0 {
		return 0, 0, "", &domain.ConfigurationError{Reason: "top_n_final must be positive"}
	}

	if input.UseSemanticRanking {
		profile = input.SemanticConfigName
		if profile == "" {
			profile = p.cfg.SemanticConfigName
		}
		if profile == "" {
			return 0, 0, "", &domain.ConfigurationError{
				Reason: "use_semantic_ranking is enabled but no semantic configuration name is set",
			}
		}
		if p.reranker == nil {
			return 0, 0, "", &domain.ConfigurationError{
				Reason: "use_semantic_ranking is enabled but no reranker client is configured",
			}
		}
	}
	return topK, topN, profile, nil
}

type searchOutcome struct {
	backend string
	hits    []domain.BackendHit
	err     error
	elapsed time.Duration
}

// retrieveRanked runs both backend searches concurrently, fuses the results,
// and optionally applies the semantic ranking stage. One failed backend
// degrades to the survivor; two failed backends are fatal.
func (p *answerPipeline) retrieveRanked(
	ctx context.Context,
	retrievalID, query string,
	topK int,
	useSemantic bool,
	profile string,
) ([]domain.ScoredDocument, error) {
	searchStart := time.Now()
	results := make(chan searchOutcome, 2)
	go p.runSearch(ctx, p.vector, query, topK, p.cfg.VectorTimeout, results)
	go p.runSearch(ctx, p.lexical, query, topK, p.cfg.LexicalTimeout, results)

	var vectorHits, lexicalHits []domain.BackendHit
	var vectorErr, lexicalErr error
	for range 2 {
		r := <-results
		switch r.backend {
		case p.vector.Name():
			vectorHits, vectorErr = r.hits, r.err
		default:
			lexicalHits, lexicalErr = r.hits, r.err
		}
		if r.err != nil {
			p.logger.Warn("backend_search_failed",
				slog.String("retrieval_id", retrievalID),
				slog.String("backend", r.backend),
				slog.String("error", r.err.Error()),
				slog.Int64("duration_ms", r.elapsed.Milliseconds()))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if vectorErr != nil && lexicalErr != nil {
		return nil, errors.Join(
			domain.ErrAllBackendsUnavailable,
			&domain.BackendUnavailableError{Backend: p.vector.Name(), Err: vectorErr},
			&domain.BackendUnavailableError{Backend: p.lexical.Name(), Err: lexicalErr},
		)
	}

	p.logger.Info("parallel_search_completed",
		slog.String("retrieval_id", retrievalID),
		slog.Int("vector_count", len(vectorHits)),
		slog.Int("lexical_count", len(lexicalHits)),
		slog.Int64("duration_ms", time.Since(searchStart).Milliseconds()))

	fused := retrieval.Fuse(vectorHits, lexicalHits, p.cfg.RankOffset)
	p.logger.Info("fusion_completed",
		slog.String("retrieval_id", retrievalID),
		slog.Int("fused_count", len(fused)))

	if !useSemantic {
		return fused, nil
	}

	return retrieval.ApplySemanticRanking(ctx, p.reranker, query, fused, retrieval.RerankConfig{
		Profile: profile,
		Timeout: p.cfg.RerankTimeout,
	}, p.logger.With(slog.String("retrieval_id", retrievalID))), nil
}

func (p *answerPipeline) runSearch(
	ctx context.Context,
	backend domain.SearchBackend,
	query string,
	k int,
	timeout time.Duration,
	results chan<- searchOutcome,
) {
	searchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	hits, err := backend.Search(searchCtx, query, k)
	results <- searchOutcome{
		backend: backend.Name(),
		hits:    hits,
		err:     err,
		elapsed: time.Since(start),
	}
}

func toSourceChunks(docs []domain.ScoredDocument) []SourceChunk {
	chunks := make([]SourceChunk, len(docs))
	for i, doc := range docs {
		chunks[i] = SourceChunk{
			ID:            doc.ID,
			Content:       doc.Content,
			Score:         doc.Score(),
			RetrievalType: doc.RetrievalType,
		}
	}
	return chunks
}

// Close releases every owned client connection exactly once. Subsequent
// calls return the first result without re-releasing anything.
func (p *answerPipeline) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		g, gctx := errgroup.WithContext(ctx)
		closers := []func(context.Context) error{
			p.vector.Close,
			p.lexical.Close,
			p.generator.Close,
		}
		if p.reranker != nil {
			closers = append(closers, p.reranker.Close)
		}
		for _, closeFn := range closers {
			g.Go(func() error { return closeFn(gctx) })
		}
		p.closeErr = g.Wait()
		if p.closeErr != nil {
			p.logger.Warn("pipeline_close_failed", slog.String("error", p.closeErr.Error()))
		} else {
			p.logger.Info("pipeline_closed")
		}
	})
	return p.closeErr
}
