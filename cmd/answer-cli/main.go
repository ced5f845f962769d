package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"answer-orchestrator/internal/di"
	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra"
	"answer-orchestrator/internal/infra/config"
	"answer-orchestrator/internal/usecase"
)

var (
	flagTopK     int
	flagTopN     int
	flagSemantic bool
	flagProfile  string
	flagVerbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "answer-cli <query>",
		Short: "Ask a question against the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnswer,
		// Errors are printed with context below; keep cobra quiet.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().IntVar(&flagTopK, "top-k", 0, "candidates to retrieve per backend (0 = configured default)")
	rootCmd.Flags().IntVar(&flagTopN, "top-n", 0, "passages to keep for the answer (0 = configured default)")
	rootCmd.Flags().BoolVar(&flagSemantic, "semantic", false, "apply semantic reranking")
	rootCmd.Flags().StringVar(&flagProfile, "profile", "", "semantic configuration name")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log pipeline stages to stderr")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runAnswer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logOut := io.Discard
	if flagVerbose {
		logOut = cmd.ErrOrStderr()
	}
	log := slog.New(slog.NewJSONHandler(logOut, nil))

	ctx := cmd.Context()
	dbPool, err := infra.NewPostgresDB(ctx, cfg.DSN()+"?sslmode=disable", infra.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}

	components := di.NewApplicationComponents(cfg, dbPool, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = components.Pipeline.Close(closeCtx)
	}()

	output, err := components.Pipeline.GetAnswer(ctx, usecase.AnswerInput{
		Query:              args[0],
		TopKRetrieval:      flagTopK,
		TopNFinal:          flagTopN,
		UseSemanticRanking: flagSemantic,
		SemanticConfigName: flagProfile,
	})
	if err != nil {
		// A generation failure still produced source chunks worth showing,
		// but the run as a whole failed and must exit non-zero.
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) && output != nil {
			printOutput(cmd.OutOrStdout(), output)
		}
		return err
	}

	printOutput(cmd.OutOrStdout(), output)
	return nil
}

type chunkOutput struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	RetrievalType string  `json:"retrieval_type"`
}

type answerOutput struct {
	Answer       string        `json:"answer"`
	SourceChunks []chunkOutput `json:"source_chunks"`
}

func printOutput(w io.Writer, output *usecase.AnswerOutput) {
	out := answerOutput{
		Answer:       output.Answer,
		SourceChunks: make([]chunkOutput, len(output.SourceChunks)),
	}
	for i, c := range output.SourceChunks {
		out.SourceChunks[i] = chunkOutput{
			ID:            c.ID,
			Content:       c.Content,
			Score:         c.Score,
			RetrievalType: string(c.RetrievalType),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
