package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/review"
)

var reviewDir string

func init() {
	reviewCmd.Flags().StringVar(&reviewDir, "dir", "", "batch directory to serve (default from OUTPUT_DIR)")
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Serve the batch files to a reviewer and record decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireReview(); err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		dir := cfg.OutputDir
		if reviewDir != "" {
			dir = reviewDir
		}

		srv := review.NewServer(db, dir, cfg.ReviewJWTSecret, cfg.ReviewPasswordHash)
		log.Printf("Review server on %s, serving %s", cfg.ReviewAddr, dir)
		return srv.ListenAndServe(cfg.ReviewAddr)
	},
}
