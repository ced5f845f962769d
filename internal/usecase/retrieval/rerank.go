package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"answer-orchestrator/internal/domain"
)

// MaxRerankCandidates caps how many fused documents are ever sent to the
// reranker in one call. Reranking only operates on a bounded prefix of the
// fused list to bound cross-encoder cost.
const MaxRerankCandidates = 50

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	// Profile selects the semantic configuration for this call.
	Profile string
	// Timeout bounds the single reranker call.
	Timeout time.Duration
}

// ApplySemanticRanking sends the top candidates of the fused list to the
// reranker and merges the response back.
//
// The reranker may return any subset of the candidates: a candidate present
// in the response gets its FinalScore set; a candidate the reranker omitted
// passes through with its fused state untouched (FusedScore kept, FinalScore
// left nil) rather than being dropped or zeroed. Documents beyond the
// candidate cap pass through unmodified as well.
//
// On reranker failure the fused order is returned unchanged; this is a
// degraded mode, not an error.
func ApplySemanticRanking(
	ctx context.Context,
	reranker domain.Reranker,
	query string,
	fused []domain.ScoredDocument,
	cfg RerankConfig,
	logger *slog.Logger,
) []domain.ScoredDocument {
	if reranker == nil || len(fused) == 0 {
		return fused
	}

	headLen := len(fused)
	if headLen > MaxRerankCandidates {
		headLen = MaxRerankCandidates
	}
	head := fused[:headLen]
	tail := fused[headLen:]

	candidates := make([]domain.RerankCandidate, len(head))
	for i, doc := range head {
		candidates[i] = domain.RerankCandidate{ID: doc.ID, Content: doc.Content}
	}

	rerankStart := time.Now()
	rerankCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		rerankCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	results, err := reranker.Rerank(rerankCtx, query, cfg.Profile, candidates)
	if err != nil {
		logger.Warn("reranking_failed_using_fused_scores",
			slog.String("error", err.Error()),
			slog.Int("candidate_count", len(candidates)),
			slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))
		return fused
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = r.Score
	}

	logger.Info("reranking_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("reranked_count", len(results)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))

	// Merge in original fused order so omitted candidates keep their place
	// relative to each other.
	merged := make([]domain.ScoredDocument, 0, len(fused))
	for _, doc := range head {
		if score, ok := scores[doc.ID]; ok {
			s := score
			doc.FinalScore = &s
		}
		merged = append(merged, doc)
	}
	merged = append(merged, tail...)

	// Reranked documents sort first by their new score; everything else
	// follows by fused score, so reranked relevance wins when available but
	// original-set recall is preserved.
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		aScored := a.FinalScore != nil
		bScored := b.FinalScore != nil
		if aScored != bScored {
			return aScored
		}
		if aScored {
			if *a.FinalScore != *b.FinalScore {
				return *a.FinalScore > *b.FinalScore
			}
		}
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		return a.ID < b.ID
	})

	return merged
}
