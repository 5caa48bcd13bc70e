package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/ingest"
	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/output"
	"github.com/concours-prep/pipeline/internal/pipeline"
	"github.com/concours-prep/pipeline/internal/source"
)

var (
	ingestTier     string
	ingestTestType string
	ingestLimit    int
	ingestOut      string
	ingestDryRun   bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestTier, "tier", "", "exam tier filter (cs, cm, ci)")
	ingestCmd.Flags().StringVar(&ingestTestType, "test-type", "", "test type filter (exam, practice, free_quiz, quick_quiz)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "max rows to fetch per source table (0 = configured default)")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "", "output directory for batch files (default from OUTPUT_DIR)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "run the full chain but write no files and no audit rows")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, validate, and write review batches from both source schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if ingestTier != "" && !models.ValidExamTiers[models.ExamTier(ingestTier)] {
			return fmt.Errorf("unknown tier %q", ingestTier)
		}
		if ingestTestType != "" && !models.ValidTestTypes[models.TestType(ingestTestType)] {
			return fmt.Errorf("unknown test type %q", ingestTestType)
		}

		ctx := cmd.Context()
		judge, second, err := buildClients(ctx, cfg)
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		var audit pipeline.AuditSink
		if !ingestDryRun {
			audit = pipeline.NewAuditStore(db)
		}
		chain := pipeline.NewChain(judge, second, audit)

		outDir := cfg.OutputDir
		if ingestOut != "" {
			outDir = ingestOut
		}
		limit := cfg.DefaultLimit
		if ingestLimit > 0 {
			limit = ingestLimit
		}

		svc := ingest.NewService(source.NewFetcher(db), chain, output.NewWriter(outDir))
		summary, err := svc.Run(ctx, ingest.Options{
			Filter: source.Filter{
				TestType: models.TestType(ingestTestType),
				ExamTier: models.ExamTier(ingestTier),
				Limit:    limit,
			},
			DryRun: ingestDryRun,
		})
		if err != nil {
			return err
		}

		log.Printf("Run %s: %d processed, %d accepted, %d flagged, %d rejected, %d structural defects",
			summary.RunID, summary.Processed, summary.Accepted, summary.Flagged, summary.Rejected,
			summary.StructuralDefects)
		for _, f := range summary.FilesWritten {
			log.Printf("Wrote %s", f)
		}
		return nil
	},
}
