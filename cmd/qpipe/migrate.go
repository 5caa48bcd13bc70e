package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/concours-prep/pipeline/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pipeline schema migrations (audit trail, review decisions)",
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

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("Migrations applied")
		return nil
	},
}
