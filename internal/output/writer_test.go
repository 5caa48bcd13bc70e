package output

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/pipeline"
)

func sampleQuestion(id int64, tier models.ExamTier, tt models.TestType) *models.Question {
	return &models.Question{
		Text:         "Quelle est la capitale politique de la Côte d'Ivoire ?",
		Options:      []string{"Abidjan", "Yamoussoukro"},
		CorrectIndex: 1,
		Explanation:  "Yamoussoukro est la capitale politique depuis 1983.",
		Subject:      models.SubjectGeneralKnowledge,
		Difficulty:   models.DifficultyEasy,
		TestType:     tt,
		ExamTier:     tier,
		SourceTable:  models.SourceTableLegacy,
		SourceID:     id,
	}
}

func TestGroup_BucketsByTierAndTestType(t *testing.T) {
	outcomes := []pipeline.Outcome{
		{Question: sampleQuestion(1, models.TierSuperior, models.TestTypeExam), Accepted: true},
		{Question: sampleQuestion(2, models.TierSuperior, models.TestTypeExam), Accepted: true},
		{Question: sampleQuestion(3, models.TierMiddle, models.TestTypePractice), Accepted: true},
		{Question: sampleQuestion(4, models.TierSuperior, models.TestTypeExam)}, // rejected, not written
	}

	groups := Group(outcomes)
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if len(groups["cs_exam"]) != 2 {
		t.Errorf("cs_exam has %d records, want 2", len(groups["cs_exam"]))
	}
	if len(groups["cm_practice"]) != 1 {
		t.Errorf("cm_practice has %d records, want 1", len(groups["cm_practice"]))
	}
}

func TestGroup_FlaggedRecordKeepsMarker(t *testing.T) {
	flags := []models.CheckResult{{
		Checkpoint: "category_validation",
		Verdict:    models.VerdictFlag,
		Reason:     "providers disagree",
	}}
	outcomes := []pipeline.Outcome{
		{Question: sampleQuestion(1, models.TierSuperior, models.TestTypeExam), Accepted: true, Flags: flags},
	}

	records := Group(outcomes)["cs_exam"]
	if len(records) != 1 {
		t.Fatalf("records = %v", records)
	}
	if records[0].ReviewStatus != models.ReviewNeedsReview {
		t.Errorf("review status = %s, want needs_review", records[0].ReviewStatus)
	}
	if len(records[0].FlagReasons) != 1 {
		t.Errorf("flag reasons = %v", records[0].FlagReasons)
	}
}

func TestWriteAll_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	q := sampleQuestion(7, models.TierSuperior, models.TestTypeExam)
	groups := Group([]pipeline.Outcome{{Question: q, Accepted: true}})

	files, err := w.WriteAll(groups)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"cs_exam.json"}) {
		t.Fatalf("files = %v", files)
	}

	records, err := ReadBatch(filepath.Join(dir, "cs_exam.json"))
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}

	want := q.ToOutput(nil)
	if !reflect.DeepEqual(records[0], want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", records[0], want)
	}
	if records[0].QuestionNumber != nil || records[0].SectionNumber != nil {
		t.Error("manual numbering fields must be null at write time")
	}
	if records[0].CorrectText != "Yamoussoukro" {
		t.Errorf("correct_text = %q", records[0].CorrectText)
	}
}

func TestWriteAll_OverwritesPriorRun(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	first := Group([]pipeline.Outcome{
		{Question: sampleQuestion(1, models.TierSuperior, models.TestTypeExam), Accepted: true},
		{Question: sampleQuestion(2, models.TierSuperior, models.TestTypeExam), Accepted: true},
	})
	if _, err := w.WriteAll(first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := Group([]pipeline.Outcome{
		{Question: sampleQuestion(3, models.TierSuperior, models.TestTypeExam), Accepted: true},
	})
	if _, err := w.WriteAll(second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	records, err := ReadBatch(filepath.Join(dir, "cs_exam.json"))
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if len(records) != 1 || records[0].SourceID != 3 {
		t.Errorf("stale records survived overwrite: %+v", records)
	}

	// No temp droppings left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "cs_exam.json" {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	report := pipeline.Report{
		RunID:               "0c7afc5e-0000-4000-8000-000000000000",
		Processed:           5,
		Accepted:            3,
		Flagged:             1,
		Rejected:            1,
		RejectsByCheckpoint: map[string]int{"structural_integrity": 1},
	}
	if err := w.WriteManifest(report, []string{"cs_exam.json"}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	for _, want := range []string{report.RunID, "structural_integrity", "cs_exam.json"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("manifest missing %q", want)
		}
	}
}
