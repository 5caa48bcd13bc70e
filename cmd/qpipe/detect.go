package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/issues"
)

var detectOut string

func init() {
	detectCmd.Flags().StringVar(&detectOut, "out", "issues.json", "path for the issue report")
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan the live questions table for structural defects and duplicates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := issues.NewDetector(db).Scan(cmd.Context())
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if err := os.WriteFile(detectOut, data, 0o644); err != nil {
			return err
		}

		log.Printf("Scanned %d questions, %d issues (%v), report at %s",
			report.Scanned, len(report.Issues), report.CountsByKind, detectOut)
		return nil
	},
}
