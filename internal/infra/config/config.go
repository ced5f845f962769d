package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the full service configuration, populated from the environment.
// A .env file, if present, is loaded first without overriding real env vars.
type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"9020"`

	DBHost     string `env:"DB_HOST" envDefault:"answer-db"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"answer_user"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"answer_db"`
	DBMaxConns int    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns int    `env:"DB_MIN_CONNS" envDefault:"2"`

	OllamaURL       string        `env:"OLLAMA_URL" envDefault:"http://ollama:11434"`
	EmbeddingModel  string        `env:"EMBEDDING_MODEL" envDefault:"embeddinggemma"`
	GenerationModel string        `env:"GENERATION_MODEL" envDefault:"gemma3:4b"`
	EmbedTimeout    time.Duration `env:"EMBED_TIMEOUT" envDefault:"30s"`

	LexicalSearchURL     string        `env:"LEXICAL_SEARCH_URL" envDefault:"http://search-indexer:9300"`
	LexicalSearchTimeout time.Duration `env:"LEXICAL_SEARCH_TIMEOUT" envDefault:"10s"`

	RerankerURL        string        `env:"RERANKER_URL"`
	RerankerModel      string        `env:"RERANKER_MODEL" envDefault:"bge-reranker-v2-m3"`
	RerankTimeout      time.Duration `env:"RERANK_TIMEOUT" envDefault:"15s"`
	UseSemanticRanking bool          `env:"USE_SEMANTIC_RANKING" envDefault:"false"`
	SemanticConfigName string        `env:"SEMANTIC_CONFIG_NAME"`

	TopKRetrieval int     `env:"TOP_K_RETRIEVAL" envDefault:"20"`
	TopNFinal     int     `env:"TOP_N_FINAL" envDefault:"5"`
	RankOffset    float64 `env:"RANK_OFFSET" envDefault:"60"`

	VectorSearchTimeout time.Duration `env:"VECTOR_SEARCH_TIMEOUT" envDefault:"10s"`
	GenerationTimeout   time.Duration `env:"GENERATION_TIMEOUT" envDefault:"120s"`

	AnswerCacheSize int           `env:"ANSWER_CACHE_SIZE" envDefault:"256"`
	AnswerCacheTTL  time.Duration `env:"ANSWER_CACHE_TTL" envDefault:"5m"`

	EnableOTelLogs bool `env:"ENABLE_OTEL_LOGS" envDefault:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DBPassword == "" {
		cfg.DBPassword = readSecretFile(os.Getenv("DB_PASSWORD_FILE"), "answer_password")
	}

	if cfg.UseSemanticRanking && cfg.SemanticConfigName == "" {
		return nil, fmt.Errorf("USE_SEMANTIC_RANKING is enabled but SEMANTIC_CONFIG_NAME is empty")
	}
	if cfg.UseSemanticRanking && cfg.RerankerURL == "" {
		return nil, fmt.Errorf("USE_SEMANTIC_RANKING is enabled but RERANKER_URL is empty")
	}

	return cfg, nil
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func readSecretFile(path, fallback string) string {
	if path == "" {
		return fallback
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	return strings.TrimSpace(string(content))
}
