package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/concours-prep/pipeline/internal/llm"
	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/output"
	"github.com/concours-prep/pipeline/internal/pipeline"
	"github.com/concours-prep/pipeline/internal/source"
)

type memorySource struct {
	legacy    []models.LegacyRow
	v2        []models.V2Row
	fetchErr  error
	lastLimit int
}

func (m *memorySource) FetchLegacy(ctx context.Context, f source.Filter) ([]models.LegacyRow, error) {
	m.lastLimit = f.Limit
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.legacy, nil
}

func (m *memorySource) FetchV2(ctx context.Context, f source.Filter) ([]models.V2Row, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.v2, nil
}

func strPtr(s string) *string { return &s }

func legacyFixture() models.LegacyRow {
	return models.LegacyRow{
		ID:          1,
		Text:        "Q5. Quelle est la capitale politique de la Côte d'Ivoire ?",
		Answer1:     strPtr("Abidjan"),
		Answer2:     strPtr("Yamoussoukro"),
		Correct:     "B",
		Explanation: "Yamoussoukro est la capitale politique depuis 1983.",
		Subject:     "culture_generale",
		Difficulty:  "Easy",
		TestType:    "exam",
		ExamTier:    "cs",
	}
}

func v2Fixture() models.V2Row {
	return models.V2Row{
		ID:           20,
		Text:         "Which preposition completes: she arrived ___ Monday?",
		Options:      []string{"on", "in", "at"},
		CorrectIndex: 0,
		Explanation:  "Days of the week take the preposition on in English.",
		Subject:      "anglais",
		Difficulty:   "Medium",
		TestType:     "practice",
		ExamTier:     "cm",
	}
}

func newTestService(src sourceReader, dir string) *Service {
	chain := pipeline.NewChain(llm.NewMockClient(), llm.NewMockClient(), nil)
	return NewService(src, chain, output.NewWriter(dir))
}

func TestRun_WritesGroupedBatchFiles(t *testing.T) {
	dir := t.TempDir()
	src := &memorySource{legacy: []models.LegacyRow{legacyFixture()}, v2: []models.V2Row{v2Fixture()}}

	summary, err := newTestService(src, dir).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Accepted != 2 {
		t.Fatalf("accepted = %d, want 2 (report %+v)", summary.Accepted, summary.Report)
	}
	if len(summary.FilesWritten) != 2 {
		t.Fatalf("files = %v", summary.FilesWritten)
	}

	records, err := output.ReadBatch(filepath.Join(dir, "cs_exam.json"))
	if err != nil {
		t.Fatalf("read cs_exam.json: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("cs_exam records = %d", len(records))
	}
	// The enumeration prefix is stripped by checkpoint 2 before writing.
	if records[0].Text != "Quelle est la capitale politique de la Côte d'Ivoire ?" {
		t.Errorf("text = %q, prefix not stripped", records[0].Text)
	}
	if records[0].CorrectIndex != 1 || records[0].CorrectText != "Yamoussoukro" {
		t.Errorf("correct = %d (%q)", records[0].CorrectIndex, records[0].CorrectText)
	}

	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	src := &memorySource{fetchErr: errors.New("connection refused")}

	_, err := newTestService(src, t.TempDir()).Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected fatal error when the initial fetch fails")
	}
}

func TestRun_StructuralDefectDroppedBeforeChain(t *testing.T) {
	bad := legacyFixture()
	bad.ID = 2
	bad.Correct = "D" // answer4 is null
	src := &memorySource{legacy: []models.LegacyRow{legacyFixture(), bad}}

	summary, err := newTestService(src, t.TempDir()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.StructuralDefects != 1 {
		t.Errorf("structural defects = %d, want 1", summary.StructuralDefects)
	}
	if summary.Processed != 1 {
		t.Errorf("processed = %d, want 1 (defect must not enter the chain)", summary.Processed)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := &memorySource{legacy: []models.LegacyRow{legacyFixture()}}

	summary, err := newTestService(src, dir).Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Accepted != 1 {
		t.Errorf("accepted = %d", summary.Accepted)
	}
	if len(summary.FilesWritten) != 0 {
		t.Errorf("dry run wrote files: %v", summary.FilesWritten)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dry run left files behind: %v", entries)
	}
}
