package config_test

import (
	"testing"
	"time"

	"answer-orchestrator/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.TopKRetrieval)
	assert.Equal(t, 5, cfg.TopNFinal)
	assert.Equal(t, 60.0, cfg.RankOffset)
	assert.False(t, cfg.UseSemanticRanking)
	assert.Equal(t, 10*time.Second, cfg.VectorSearchTimeout)
}

func TestLoad_SemanticRankingRequiresProfile(t *testing.T) {
	t.Setenv("USE_SEMANTIC_RANKING", "true")
	t.Setenv("RERANKER_URL", "http://reranker:8001")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMANTIC_CONFIG_NAME")

	t.Setenv("SEMANTIC_CONFIG_NAME", "default-semantic")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "default-semantic", cfg.SemanticConfigName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOP_K_RETRIEVAL", "40")
	t.Setenv("RANK_OFFSET", "30")
	t.Setenv("GENERATION_TIMEOUT", "45s")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.TopKRetrieval)
	assert.Equal(t, 30.0, cfg.RankOffset)
	assert.Equal(t, 45*time.Second, cfg.GenerationTimeout)
}

func TestDSN(t *testing.T) {
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_HOST", "h")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "d")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5433/d", cfg.DSN())
}
