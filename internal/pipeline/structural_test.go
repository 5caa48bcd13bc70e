package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/concours-prep/pipeline/internal/models"
)

func validQuestion() *models.Question {
	return &models.Question{
		Text:         "Quelle est la capitale politique de la Côte d'Ivoire ?",
		Options:      []string{"Abidjan", "Yamoussoukro", "Bouaké"},
		CorrectIndex: 1,
		Explanation:  "Yamoussoukro est la capitale politique depuis 1983, Abidjan restant la capitale économique.",
		Subject:      models.SubjectGeneralKnowledge,
		Difficulty:   models.DifficultyEasy,
		TestType:     models.TestTypeExam,
		ExamTier:     models.TierSuperior,
		SourceTable:  models.SourceTableLegacy,
		SourceID:     1,
	}
}

func TestStructuralCheck_Valid(t *testing.T) {
	res := (&StructuralCheck{}).Check(context.Background(), validQuestion(), NewBatch())
	if res.Verdict != models.VerdictPass {
		t.Fatalf("valid question rejected: %s", res.Reason)
	}
}

func TestStructuralCheck_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Question)
		want   string
	}{
		{"text too short", func(q *models.Question) { q.Text = "Trop court" }, "text length"},
		{"text too long", func(q *models.Question) { q.Text = strings.Repeat("a", 801) }, "text length"},
		{"control characters", func(q *models.Question) { q.Text = "Quelle est la capitale\x00 du pays ?" }, "control characters"},
		{"html entities", func(q *models.Question) { q.Text = "Quelle est la capitale &eacute;conomique du pays ?" }, "HTML entities"},
		{"too few options", func(q *models.Question) { q.Options = []string{"Abidjan"}; q.CorrectIndex = 0 }, "options outside"},
		{"too many options", func(q *models.Question) {
			q.Options = []string{"a", "b", "c", "d", "e"}
		}, "options outside"},
		{"empty option", func(q *models.Question) { q.Options[0] = "  " }, "option 0 is empty"},
		{"index out of range", func(q *models.Question) { q.CorrectIndex = 7 }, "out of range"},
		{"index points at empty option", func(q *models.Question) { q.Options[1] = "" }, "empty option"},
		{"missing explanation", func(q *models.Question) { q.Explanation = "" }, "explanation is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(q)
			res := (&StructuralCheck{}).Check(context.Background(), q, NewBatch())
			if res.Verdict != models.VerdictReject {
				t.Fatalf("verdict = %s, want reject", res.Verdict)
			}
			if !strings.Contains(res.Reason, tt.want) {
				t.Errorf("reason %q does not mention %q", res.Reason, tt.want)
			}
		})
	}
}

func TestPrefixCheck_StripsAndRecords(t *testing.T) {
	q := validQuestion()
	q.Text = "Q5. " + q.Text

	res := (&PrefixCheck{}).Check(context.Background(), q, NewBatch())
	if res.Verdict != models.VerdictPass {
		t.Fatalf("prefix check must never reject, got %s", res.Verdict)
	}
	if !strings.Contains(res.Reason, "Q5.") {
		t.Errorf("reason %q should record the stripped prefix", res.Reason)
	}
	if strings.HasPrefix(q.Text, "Q5.") {
		t.Errorf("prefix not stripped from text: %q", q.Text)
	}
}

func TestPrefixCheck_NoPrefix(t *testing.T) {
	q := validQuestion()
	original := q.Text
	res := (&PrefixCheck{}).Check(context.Background(), q, NewBatch())
	if res.Verdict != models.VerdictPass || res.Reason != "" {
		t.Errorf("unexpected result %+v", res)
	}
	if q.Text != original {
		t.Errorf("text mutated without a prefix: %q", q.Text)
	}
}
