package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/concours-prep/pipeline/internal/models"
)

// AuditStore appends every checkpoint verdict to the ingestion_audit
// table so rejected and flagged records stay traceable after the run.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, runID uuid.UUID, q *models.Question, res models.CheckResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_audit (run_id, source_table, source_id, checkpoint, verdict, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID.String(), q.SourceTable, q.SourceID, res.Checkpoint, string(res.Verdict), res.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}
