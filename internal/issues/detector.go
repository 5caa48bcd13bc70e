// Package issues scans the destination questions table for records that
// should never have been promoted: structural violations, residual
// enumeration prefixes, and intra-category duplicate clusters. The scan
// is read-only; the report feeds the refresh workflow.
package issues

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/concours-prep/pipeline/internal/dedupe"
	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/normalize"
	"github.com/concours-prep/pipeline/internal/pipeline"
)

const (
	KindStructural    = "structural"
	KindPrefixRemnant = "prefix_remnant"
	KindDuplicate     = "duplicate"
)

type Issue struct {
	QuestionID int64  `json:"question_id"`
	TestType   string `json:"test_type"`
	ExamTier   string `json:"exam_type"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail"`
}

type Report struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	Scanned      int            `json:"scanned"`
	Issues       []Issue        `json:"issues"`
	CountsByKind map[string]int `json:"counts_by_kind"`
}

type scannedQuestion struct {
	id       int64
	question models.Question
}

type Detector struct {
	db *sql.DB
}

func NewDetector(db *sql.DB) *Detector {
	return &Detector{db: db}
}

// Scan reads every live question and classifies its defects.
func (d *Detector) Scan(ctx context.Context) (*Report, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, text, options, correct_index, COALESCE(explanation, ''),
		        COALESCE(subject, ''), COALESCE(difficulty, ''),
		        COALESCE(test_type, ''), COALESCE(exam_type, '')
		 FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("scan questions table: %w", err)
	}
	defer rows.Close()

	var scanned []scannedQuestion
	for rows.Next() {
		var (
			id      int64
			text    string
			options pq.StringArray
			idx     int
			expl    string
			subject string
			diff    string
			tt      string
			tier    string
		)
		if err := rows.Scan(&id, &text, &options, &idx, &expl, &subject, &diff, &tt, &tier); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		scanned = append(scanned, scannedQuestion{
			id: id,
			question: models.Question{
				Text:         text,
				Options:      []string(options),
				CorrectIndex: idx,
				Explanation:  expl,
				Subject:      models.Subject(subject),
				Difficulty:   models.Difficulty(diff),
				TestType:     models.TestType(tt),
				ExamTier:     models.ExamTier(tier),
				SourceTable:  "questions",
				SourceID:     id,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return buildReport(scanned), nil
}

func buildReport(scanned []scannedQuestion) *Report {
	report := &Report{
		GeneratedAt:  time.Now().UTC(),
		Scanned:      len(scanned),
		CountsByKind: make(map[string]int),
	}

	add := func(sq scannedQuestion, kind, detail string) {
		report.Issues = append(report.Issues, Issue{
			QuestionID: sq.id,
			TestType:   string(sq.question.TestType),
			ExamTier:   string(sq.question.ExamTier),
			Kind:       kind,
			Detail:     detail,
		})
		report.CountsByKind[kind]++
	}

	// Structural and prefix defects, per record.
	structural := &pipeline.StructuralCheck{}
	for _, sq := range scanned {
		q := sq.question
		if res := structural.Check(context.Background(), &q, pipeline.NewBatch()); res.Verdict == models.VerdictReject {
			add(sq, KindStructural, res.Reason)
		}
		if _, stripped := normalize.StripEnumPrefix(sq.question.Text); stripped != "" {
			add(sq, KindPrefixRemnant, fmt.Sprintf("leading prefix %q", stripped))
		}
	}

	// Duplicate clusters within each (tier, test type) bucket. The first
	// record of a pair stays; only the later one is reported so one fix
	// resolves the cluster.
	buckets := make(map[string][]scannedQuestion)
	for _, sq := range scanned {
		key := string(sq.question.ExamTier) + "|" + string(sq.question.TestType)
		buckets[key] = append(buckets[key], sq)
	}
	for _, bucket := range buckets {
		detector := dedupe.NewDetector()
		for _, sq := range bucket {
			q := sq.question
			dup, matchKey, score := detector.IsNearDuplicate(&q, dedupe.FieldTextOptions, dedupe.TextOptionsThreshold)
			if dup {
				add(sq, KindDuplicate, fmt.Sprintf("text+options duplicate of %s (similarity %.2f)", matchKey, score))
			} else {
				detector.Add(&q)
			}
		}
	}

	return report
}
