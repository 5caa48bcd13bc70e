// Package refresh turns the issue report into replacement work: collect
// builds a candidates file naming every defective question a generator
// should replace, and process runs externally generated replacements
// through the full validation chain before they reach review.
package refresh

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/concours-prep/pipeline/internal/issues"
	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/normalize"
	"github.com/concours-prep/pipeline/internal/output"
	"github.com/concours-prep/pipeline/internal/pipeline"
)

// Candidate is one question slated for replacement, with every issue the
// scan found and the reviewer's standing decision if one exists.
type Candidate struct {
	QuestionID int64    `json:"question_id"`
	TestType   string   `json:"test_type"`
	ExamTier   string   `json:"exam_type"`
	Issues     []string `json:"issues"`
	Decision   string   `json:"decision,omitempty"`
}

type CandidateFile struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Scanned     int         `json:"scanned"`
	Candidates  []Candidate `json:"candidates"`
}

// GeneratedQuestion is the shape a generator hands back. Same fields as
// the v2 source schema so one normalizer serves both paths.
type GeneratedQuestion struct {
	ReplacesID   int64    `json:"replaces_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Subject      string   `json:"subject"`
	Difficulty   string   `json:"difficulty"`
	TestType     string   `json:"test_type"`
	ExamTier     string   `json:"exam_type"`
}

type Service struct {
	db       *sql.DB
	detector *issues.Detector
	chain    *pipeline.Chain
	writer   *output.Writer
}

func NewService(db *sql.DB, detector *issues.Detector, chain *pipeline.Chain, writer *output.Writer) *Service {
	return &Service{db: db, detector: detector, chain: chain, writer: writer}
}

// Collect scans the live table and writes the candidates file. Questions
// a reviewer already decided to keep are excluded; everything else with
// at least one issue becomes a candidate.
func (s *Service) Collect(ctx context.Context, path string) (*CandidateFile, error) {
	report, err := s.detector.Scan(ctx)
	if err != nil {
		return nil, err
	}

	decisions, err := s.loadDecisions(ctx)
	if err != nil {
		return nil, err
	}

	file := &CandidateFile{GeneratedAt: time.Now().UTC(), Scanned: report.Scanned}
	byID := make(map[int64]*Candidate)
	var order []int64
	for _, iss := range report.Issues {
		if decisions[iss.QuestionID] == "keep" {
			continue
		}
		c, ok := byID[iss.QuestionID]
		if !ok {
			c = &Candidate{
				QuestionID: iss.QuestionID,
				TestType:   iss.TestType,
				ExamTier:   iss.ExamTier,
				Decision:   decisions[iss.QuestionID],
			}
			byID[iss.QuestionID] = c
			order = append(order, iss.QuestionID)
		}
		c.Issues = append(c.Issues, iss.Kind+": "+iss.Detail)
	}
	for _, id := range order {
		file.Candidates = append(file.Candidates, *byID[id])
	}

	if err := writeJSON(path, file); err != nil {
		return nil, err
	}
	log.Printf("Collected %d replacement candidates from %d scanned questions", len(file.Candidates), report.Scanned)
	return file, nil
}

// Process reads a generated-questions file, normalizes each record, runs
// the full chain, and writes batch files exactly like a source ingestion.
func (s *Service) Process(ctx context.Context, path string) (*pipeline.Report, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read generated questions: %w", err)
	}
	var generated []GeneratedQuestion
	if err := json.Unmarshal(data, &generated); err != nil {
		return nil, nil, fmt.Errorf("parse generated questions: %w", err)
	}

	var questions []models.Question
	for i, g := range generated {
		q, err := normalize.FromV2(models.V2Row{
			ID:           g.ReplacesID,
			Text:         g.Text,
			Options:      g.Options,
			CorrectIndex: g.CorrectIndex,
			Explanation:  g.Explanation,
			Subject:      g.Subject,
			Difficulty:   g.Difficulty,
			TestType:     g.TestType,
			ExamTier:     g.ExamTier,
		})
		if err != nil {
			log.Printf("DROP generated record %d before validation: %v", i, err)
			continue
		}
		q.SourceTable = SourceTableGenerated
		questions = append(questions, q)
	}

	report := s.chain.Run(ctx, questions)
	files, err := s.writer.WriteAll(output.Group(report.Outcomes))
	if err != nil {
		return &report, files, err
	}
	if err := s.writer.WriteManifest(report, files); err != nil {
		return &report, files, err
	}
	return &report, files, nil
}

// SourceTableGenerated marks records that came from a generator rather
// than a source schema.
const SourceTableGenerated = "generated"

// Run is collect followed by process: scan, write candidates, then (if a
// generated file already exists alongside) validate it.
func (s *Service) Run(ctx context.Context, candidatesPath, generatedPath string) error {
	if _, err := s.Collect(ctx, candidatesPath); err != nil {
		return err
	}
	if _, err := os.Stat(generatedPath); os.IsNotExist(err) {
		log.Printf("No generated file at %s; collect-only run", generatedPath)
		return nil
	}
	_, _, err := s.Process(ctx, generatedPath)
	return err
}

func (s *Service) loadDecisions(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, decision FROM review_decisions WHERE source_table = 'questions'`)
	if err != nil {
		return nil, fmt.Errorf("load review decisions: %w", err)
	}
	defer rows.Close()

	decisions := make(map[int64]string)
	for rows.Next() {
		var id int64
		var decision string
		if err := rows.Scan(&id, &decision); err != nil {
			return nil, fmt.Errorf("scan review decision: %w", err)
		}
		decisions[id] = decision
	}
	return decisions, rows.Err()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
