package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/concours-prep/pipeline/internal/models"
)

// ErrStructuralDefect marks rows that cannot be normalized at all and are
// rejected before the validation chain (logged, never silently defaulted).
var ErrStructuralDefect = errors.New("structural defect")

// FromLegacy adapts a questions_legacy row into the unified record.
// The answer letter indexes the answer1..answer4 columns; null columns are
// skipped while preserving source order, so the letter is re-based onto
// the collected options list.
func FromLegacy(row models.LegacyRow) (models.Question, error) {
	letter := strings.ToUpper(strings.TrimSpace(row.Correct))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'D' {
		return models.Question{}, fmt.Errorf("%w: invalid correct letter %q (row %d)", ErrStructuralDefect, row.Correct, row.ID)
	}
	letterPos := int(letter[0] - 'A')

	answers := []*string{row.Answer1, row.Answer2, row.Answer3, row.Answer4}
	if answers[letterPos] == nil {
		return models.Question{}, fmt.Errorf("%w: correct answer %s is null (row %d)", ErrStructuralDefect, letter, row.ID)
	}

	var options []string
	correctIndex := -1
	for i, a := range answers {
		if a == nil {
			continue
		}
		if i == letterPos {
			correctIndex = len(options)
		}
		options = append(options, *a)
	}

	subject, err := normalizeSubject(row.Subject)
	if err != nil {
		return models.Question{}, fmt.Errorf("%w (row %d)", err, row.ID)
	}

	return models.Question{
		Text:         row.Text,
		Options:      options,
		CorrectIndex: correctIndex,
		Explanation:  row.Explanation,
		Subject:      subject,
		Difficulty:   NormalizeDifficulty(row.Difficulty),
		TestType:     normalizeTestType(row.TestType),
		ExamTier:     models.ExamTier(strings.ToLower(strings.TrimSpace(row.ExamTier))),
		SourceTable:  models.SourceTableLegacy,
		SourceID:     row.ID,
	}, nil
}

// FromV2 adapts a questions_v2 row. The newer schema already stores an
// options array and a zero-based index, so only vocabulary needs mapping.
func FromV2(row models.V2Row) (models.Question, error) {
	if row.CorrectIndex < 0 || row.CorrectIndex >= len(row.Options) {
		return models.Question{}, fmt.Errorf("%w: correct_index %d out of range for %d options (row %d)",
			ErrStructuralDefect, row.CorrectIndex, len(row.Options), row.ID)
	}

	subject, err := normalizeSubject(row.Subject)
	if err != nil {
		return models.Question{}, fmt.Errorf("%w (row %d)", err, row.ID)
	}

	options := make([]string, len(row.Options))
	copy(options, row.Options)

	return models.Question{
		Text:         row.Text,
		Options:      options,
		CorrectIndex: row.CorrectIndex,
		Explanation:  row.Explanation,
		Subject:      subject,
		Difficulty:   NormalizeDifficulty(row.Difficulty),
		TestType:     normalizeTestType(row.TestType),
		ExamTier:     models.ExamTier(strings.ToLower(strings.TrimSpace(row.ExamTier))),
		SourceTable:  models.SourceTableV2,
		SourceID:     row.ID,
	}, nil
}

// NormalizeDifficulty maps the free vocabulary found across both schemas
// ("Easy", "facile", "Moyen", ...) onto the closed enum. Unknown values
// fall back to MEDIUM rather than dropping the row; difficulty is a label,
// not a correctness property.
func NormalizeDifficulty(raw string) models.Difficulty {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "facile":
		return models.DifficultyEasy
	case "hard", "difficile":
		return models.DifficultyHard
	case "medium", "moyen", "moyenne":
		return models.DifficultyMedium
	}
	if d := models.Difficulty(strings.ToUpper(strings.TrimSpace(raw))); models.ValidDifficulties[d] {
		return d
	}
	return models.DifficultyMedium
}

func normalizeSubject(raw string) (models.Subject, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "culture_generale", "culture generale", "culture générale", "general_knowledge":
		return models.SubjectGeneralKnowledge, nil
	case "anglais", "english":
		return models.SubjectEnglish, nil
	case "logique", "logic":
		return models.SubjectLogic, nil
	}
	return "", fmt.Errorf("%w: unknown subject %q", ErrStructuralDefect, raw)
}

func normalizeTestType(raw string) models.TestType {
	cleaned := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	return models.TestType(cleaned)
}
