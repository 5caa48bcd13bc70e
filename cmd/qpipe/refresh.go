package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/issues"
	"github.com/concours-prep/pipeline/internal/output"
	"github.com/concours-prep/pipeline/internal/pipeline"
	"github.com/concours-prep/pipeline/internal/refresh"
)

var (
	refreshCandidates string
	refreshGenerated  string
	refreshOut        string
)

func init() {
	for _, c := range []*cobra.Command{refreshCollectCmd, refreshProcessCmd, refreshRunCmd} {
		refreshCmd.AddCommand(c)
	}
	refreshCmd.PersistentFlags().StringVar(&refreshCandidates, "candidates", "candidates.json", "path for the replacement candidates file")
	refreshCmd.PersistentFlags().StringVar(&refreshGenerated, "generated", "generated.json", "path to the generated replacements file")
	refreshCmd.PersistentFlags().StringVar(&refreshOut, "out", "", "output directory for validated replacement batches (default from OUTPUT_DIR)")
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace defective live questions: collect candidates, validate replacements",
}

// refreshService builds the service with or without the LLM chain; collect
// never calls a model so it skips provider setup.
func refreshService(cmd *cobra.Command, withChain bool) (*refresh.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { db.Close() }

	var chain *pipeline.Chain
	if withChain {
		judge, second, err := buildClients(cmd.Context(), cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		chain = pipeline.NewChain(judge, second, pipeline.NewAuditStore(db))
	}

	outDir := cfg.OutputDir
	if refreshOut != "" {
		outDir = refreshOut
	}
	svc := refresh.NewService(db, issues.NewDetector(db), chain, output.NewWriter(outDir))
	return svc, cleanup, nil
}

var refreshCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Write the replacement candidates file from the issue scan and review decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := refreshService(cmd, false)
		if err != nil {
			return err
		}
		defer cleanup()

		file, err := svc.Collect(cmd.Context(), refreshCandidates)
		if err != nil {
			return err
		}
		log.Printf("Wrote %d candidates to %s", len(file.Candidates), refreshCandidates)
		return nil
	},
}

var refreshProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Validate generated replacement questions through the full chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := refreshService(cmd, true)
		if err != nil {
			return err
		}
		defer cleanup()

		report, files, err := svc.Process(cmd.Context(), refreshGenerated)
		if err != nil {
			return err
		}
		log.Printf("Run %s: %d processed, %d accepted, %d flagged, %d rejected",
			report.RunID, report.Processed, report.Accepted, report.Flagged, report.Rejected)
		for _, f := range files {
			log.Printf("Wrote %s", f)
		}
		return nil
	},
}

var refreshRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect candidates, then validate the generated file if present",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := refreshService(cmd, true)
		if err != nil {
			return err
		}
		defer cleanup()

		return svc.Run(cmd.Context(), refreshCandidates, refreshGenerated)
	},
}
