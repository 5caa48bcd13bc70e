package pipeline

import (
	"context"
	"fmt"

	"github.com/concours-prep/pipeline/internal/dedupe"
	"github.com/concours-prep/pipeline/internal/models"
)

// TextOptionsDuplicateCheck is checkpoint 6: fuzzy similarity over the
// prompt concatenated with all options, against every record accepted so
// far in the batch. Local and authoritative.
type TextOptionsDuplicateCheck struct{}

func (c *TextOptionsDuplicateCheck) Name() string { return "text_options_duplicate" }

func (c *TextOptionsDuplicateCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	dup, key, score := batch.Detector.IsNearDuplicate(q, dedupe.FieldTextOptions, dedupe.TextOptionsThreshold)
	if dup {
		return reject(c.Name(), fmt.Sprintf("text+options duplicate of %s (similarity %.2f)", key, score))
	}
	return pass(c.Name())
}

// CorrectAnswerDuplicateCheck is checkpoint 8: fuzzy similarity restricted
// to the correct-answer text. Answer strings are short, so the bar is
// higher than the combined check to avoid over-rejecting legitimately
// similar answers.
type CorrectAnswerDuplicateCheck struct{}

func (c *CorrectAnswerDuplicateCheck) Name() string { return "correct_answer_duplicate" }

func (c *CorrectAnswerDuplicateCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	dup, key, score := batch.Detector.IsNearDuplicate(q, dedupe.FieldCorrectText, dedupe.CorrectTextThreshold)
	if dup {
		return reject(c.Name(), fmt.Sprintf("correct answer duplicates %s (similarity %.2f)", key, score))
	}
	return pass(c.Name())
}
