package normalize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/concours-prep/pipeline/internal/models"
)

func strPtr(s string) *string { return &s }

func TestFromLegacy_SkipsNullAnswers(t *testing.T) {
	row := models.LegacyRow{
		ID:          42,
		Text:        "Quelle est la capitale politique de la Côte d'Ivoire ?",
		Answer1:     strPtr("Abidjan"),
		Answer2:     nil,
		Answer3:     strPtr("Yamoussoukro"),
		Answer4:     nil,
		Correct:     "C",
		Explanation: "Yamoussoukro est la capitale politique depuis 1983.",
		Subject:     "culture_generale",
		Difficulty:  "Easy",
		TestType:    "exam",
		ExamTier:    "CS",
	}

	q, err := FromLegacy(row)
	if err != nil {
		t.Fatalf("FromLegacy returned error: %v", err)
	}

	wantOptions := []string{"Abidjan", "Yamoussoukro"}
	if !reflect.DeepEqual(q.Options, wantOptions) {
		t.Errorf("options = %v, want %v", q.Options, wantOptions)
	}
	// Letter C points at answer3, which lands at index 1 once nulls are skipped.
	if q.CorrectIndex != 1 {
		t.Errorf("correct_index = %d, want 1", q.CorrectIndex)
	}
	if q.CorrectText() != "Yamoussoukro" {
		t.Errorf("correct text = %q, want Yamoussoukro", q.CorrectText())
	}
	if q.Difficulty != models.DifficultyEasy {
		t.Errorf("difficulty = %q, want EASY", q.Difficulty)
	}
	if q.ExamTier != models.TierSuperior {
		t.Errorf("exam tier = %q, want cs", q.ExamTier)
	}
	if q.SourceTable != models.SourceTableLegacy || q.SourceID != 42 {
		t.Errorf("provenance = %s:%d, want questions_legacy:42", q.SourceTable, q.SourceID)
	}
}

func TestFromLegacy_NullCorrectAnswerRejected(t *testing.T) {
	row := models.LegacyRow{
		ID:      7,
		Text:    "Une question sans bonne réponse enregistrée",
		Answer1: strPtr("Paris"),
		Answer2: strPtr("Lyon"),
		Correct: "C", // answer3 is null
		Subject: "culture_generale",
	}

	_, err := FromLegacy(row)
	if !errors.Is(err, ErrStructuralDefect) {
		t.Fatalf("expected ErrStructuralDefect, got %v", err)
	}
}

func TestFromLegacy_InvalidLetterRejected(t *testing.T) {
	row := models.LegacyRow{
		ID:      8,
		Text:    "Lettre invalide",
		Answer1: strPtr("Oui"),
		Answer2: strPtr("Non"),
		Correct: "E",
		Subject: "logique",
	}

	if _, err := FromLegacy(row); !errors.Is(err, ErrStructuralDefect) {
		t.Fatalf("expected ErrStructuralDefect, got %v", err)
	}
}

func TestFromLegacy_Idempotent(t *testing.T) {
	row := models.LegacyRow{
		ID:          9,
		Text:        "What is the past tense of go?",
		Answer1:     strPtr("goed"),
		Answer2:     strPtr("went"),
		Answer3:     strPtr("gone"),
		Correct:     "B",
		Explanation: "Went is the simple past of go.",
		Subject:     "anglais",
		Difficulty:  "Moyen",
		TestType:    "free-quiz",
		ExamTier:    "cm",
	}

	first, err := FromLegacy(row)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := FromLegacy(row)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization is not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
	if first.TestType != models.TestTypeFreeQuiz {
		t.Errorf("test type = %q, want free_quiz", first.TestType)
	}
}

func TestFromV2(t *testing.T) {
	row := models.V2Row{
		ID:           311,
		Text:         "Deux trains partent en sens inverse...",
		Options:      []string{"2h", "3h", "4h"},
		CorrectIndex: 2,
		Explanation:  "La vitesse relative est la somme des vitesses.",
		Subject:      "logique",
		Difficulty:   "difficile",
		TestType:     "practice",
		ExamTier:     "ci",
	}

	q, err := FromV2(row)
	if err != nil {
		t.Fatalf("FromV2 returned error: %v", err)
	}
	if q.CorrectIndex != 2 || q.CorrectText() != "4h" {
		t.Errorf("correct = %d (%q), want 2 (4h)", q.CorrectIndex, q.CorrectText())
	}
	if q.Difficulty != models.DifficultyHard {
		t.Errorf("difficulty = %q, want HARD", q.Difficulty)
	}
	if q.SourceTable != models.SourceTableV2 {
		t.Errorf("source table = %q, want questions_v2", q.SourceTable)
	}
}

func TestFromV2_IndexOutOfRange(t *testing.T) {
	row := models.V2Row{
		ID:           312,
		Text:         "Index cassé",
		Options:      []string{"a", "b"},
		CorrectIndex: 5,
		Subject:      "logique",
	}
	if _, err := FromV2(row); !errors.Is(err, ErrStructuralDefect) {
		t.Fatalf("expected ErrStructuralDefect, got %v", err)
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Difficulty
	}{
		{"Easy", models.DifficultyEasy},
		{"facile", models.DifficultyEasy},
		{"EASY", models.DifficultyEasy},
		{"Moyen", models.DifficultyMedium},
		{"medium", models.DifficultyMedium},
		{"Difficile", models.DifficultyHard},
		{"HARD", models.DifficultyHard},
		{"", models.DifficultyMedium},
		{"inconnu", models.DifficultyMedium},
	}
	for _, tt := range tests {
		if got := NormalizeDifficulty(tt.raw); got != tt.want {
			t.Errorf("NormalizeDifficulty(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeSubject_Unknown(t *testing.T) {
	row := models.V2Row{
		ID:           1,
		Text:         "x",
		Options:      []string{"a", "b"},
		CorrectIndex: 0,
		Subject:      "astrologie",
	}
	if _, err := FromV2(row); !errors.Is(err, ErrStructuralDefect) {
		t.Fatalf("expected ErrStructuralDefect for unknown subject, got %v", err)
	}
}
