package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/normalize"
)

const (
	minTextLen = 15
	maxTextLen = 800
	minOptions = 2
	maxOptions = 4
)

var htmlEntityRe = regexp.MustCompile(`&[a-zA-Z]{2,8};|&#\d+;`)

// StructuralCheck is checkpoint 1: cheap, local, and authoritative. A
// record failing here never reaches an LLM call.
type StructuralCheck struct{}

func (c *StructuralCheck) Name() string { return "structural_integrity" }

func (c *StructuralCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	var problems []string

	textLen := len([]rune(strings.TrimSpace(q.Text)))
	if textLen < minTextLen || textLen > maxTextLen {
		problems = append(problems, fmt.Sprintf("text length %d outside [%d, %d]", textLen, minTextLen, maxTextLen))
	}
	if hasControlChars(q.Text) {
		problems = append(problems, "text contains control characters")
	}
	if htmlEntityRe.MatchString(q.Text) {
		problems = append(problems, "text contains HTML entities")
	}

	if len(q.Options) < minOptions || len(q.Options) > maxOptions {
		problems = append(problems, fmt.Sprintf("%d options outside [%d, %d]", len(q.Options), minOptions, maxOptions))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			problems = append(problems, fmt.Sprintf("option %d is empty", i))
		}
	}

	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		problems = append(problems, fmt.Sprintf("correct_index %d out of range for %d options", q.CorrectIndex, len(q.Options)))
	} else if strings.TrimSpace(q.Options[q.CorrectIndex]) == "" {
		problems = append(problems, "correct_index points at an empty option")
	}

	if strings.TrimSpace(q.Explanation) == "" {
		problems = append(problems, "explanation is missing")
	}

	if len(problems) > 0 {
		return reject(c.Name(), strings.Join(problems, "; "))
	}
	return pass(c.Name())
}

// hasControlChars reports any control or escape character in s. Question
// text is single-line prose; embedded newlines and tabs are import
// artifacts, not formatting.
func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// PrefixCheck is checkpoint 2: it strips a leading enumeration prefix
// ("Q5.", "12-", "(3)") from the text and logs what was removed. It never
// rejects; a stripped prefix is recorded as a passing result with a
// reason so the audit trail shows the mutation.
type PrefixCheck struct{}

func (c *PrefixCheck) Name() string { return "prefix_detection" }

func (c *PrefixCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	cleaned, stripped := normalize.StripEnumPrefix(q.Text)
	if stripped == "" {
		return pass(c.Name())
	}
	q.Text = cleaned
	res := pass(c.Name())
	res.Reason = fmt.Sprintf("stripped prefix %q", stripped)
	return res
}
