// Package source reads raw question rows from the two hosted source
// tables. A fetch failure is the one fatal error class in the pipeline:
// callers abort the run rather than validating a partial batch.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/concours-prep/pipeline/internal/models"
)

// Filter narrows a fetch to one processing category and tier. Zero values
// mean no filtering on that key.
type Filter struct {
	TestType models.TestType
	ExamTier models.ExamTier
	Limit    int
}

type Fetcher struct {
	db *sql.DB
}

func NewFetcher(db *sql.DB) *Fetcher {
	return &Fetcher{db: db}
}

// FetchLegacy pulls rows from questions_legacy (answer1..answer4 columns,
// letter correct). Answer columns come back as nullable pointers; the
// normalizer decides what a null means.
func (f *Fetcher) FetchLegacy(ctx context.Context, filter Filter) ([]models.LegacyRow, error) {
	query := `SELECT id, question_text, answer1, answer2, answer3, answer4,
	                 correct, COALESCE(explanation, ''), COALESCE(subject, ''),
	                 COALESCE(difficulty, ''), COALESCE(test_type, ''), COALESCE(exam_type, '')
	          FROM questions_legacy`
	query, args := applyFilter(query, filter)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch questions_legacy: %w", err)
	}
	defer rows.Close()

	var out []models.LegacyRow
	for rows.Next() {
		var r models.LegacyRow
		if err := rows.Scan(&r.ID, &r.Text, &r.Answer1, &r.Answer2, &r.Answer3, &r.Answer4,
			&r.Correct, &r.Explanation, &r.Subject, &r.Difficulty, &r.TestType, &r.ExamTier); err != nil {
			return nil, fmt.Errorf("scan questions_legacy row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions_legacy: %w", err)
	}
	return out, nil
}

// FetchV2 pulls rows from questions_v2 (text[] options + correct_index).
func (f *Fetcher) FetchV2(ctx context.Context, filter Filter) ([]models.V2Row, error) {
	query := `SELECT id, text, options, correct_index,
	                 COALESCE(explanation, ''), COALESCE(subject, ''),
	                 COALESCE(difficulty, ''), COALESCE(test_type, ''), COALESCE(exam_type, '')
	          FROM questions_v2`
	query, args := applyFilter(query, filter)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch questions_v2: %w", err)
	}
	defer rows.Close()

	var out []models.V2Row
	for rows.Next() {
		var r models.V2Row
		var options pq.StringArray
		if err := rows.Scan(&r.ID, &r.Text, &options, &r.CorrectIndex,
			&r.Explanation, &r.Subject, &r.Difficulty, &r.TestType, &r.ExamTier); err != nil {
			return nil, fmt.Errorf("scan questions_v2 row: %w", err)
		}
		r.Options = []string(options)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions_v2: %w", err)
	}
	return out, nil
}

func applyFilter(query string, filter Filter) (string, []interface{}) {
	var args []interface{}
	where := ""
	if filter.TestType != "" {
		args = append(args, string(filter.TestType))
		where += fmt.Sprintf(" WHERE test_type = $%d", len(args))
	}
	if filter.ExamTier != "" {
		args = append(args, string(filter.ExamTier))
		if where == "" {
			where += fmt.Sprintf(" WHERE exam_type = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND exam_type = $%d", len(args))
		}
	}
	query += where + " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}
