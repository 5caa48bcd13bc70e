// qpipe is the question ingestion pipeline CLI: it validates raw exam
// questions from the source schemas, audits every verdict, and writes
// per-(tier, test type) batch files for human review.
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/config"
	"github.com/concours-prep/pipeline/internal/database"
	"github.com/concours-prep/pipeline/internal/llm"
)

var rootCmd = &cobra.Command{
	Use:           "qpipe",
	Short:         "Exam question validation and ingestion pipeline",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(migrateCmd, ingestCmd, detectCmd, refreshCmd, reviewCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// buildClients wires the judge (every single-provider checkpoint) and the
// independent second provider for the category check.
func buildClients(ctx context.Context, cfg *config.Config) (judge, second llm.Client, err error) {
	if cfg.MockLLM {
		return llm.NewMockClient(), llm.NewMockClient(), nil
	}
	if cfg.UseCLIClient {
		// CLI mode has a single provider; the category check still runs
		// but both judgments come from the same model.
		cli := llm.NewCLIClient(cfg.ClaudeCLIPath)
		return cli, cli, nil
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, nil, err
	}
	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize secondary provider: %w", err)
	}
	return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), gemini, nil
}
