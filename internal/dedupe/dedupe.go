// Package dedupe maintains the per-run similarity index used by the
// duplicate checkpoints. It only knows about records accepted during the
// current batch; cross-run deduplication would need a persisted index and
// is deliberately out of scope.
package dedupe

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/concours-prep/pipeline/internal/models"
)

// Field selects which part of the record is compared.
type Field int

const (
	// FieldTextOptions compares the prompt concatenated with every option.
	FieldTextOptions Field = iota
	// FieldCorrectText compares only the correct answer text. Answers are
	// short, so callers use a higher threshold to avoid rejecting
	// legitimately similar answers.
	FieldCorrectText
)

// Thresholds fixed by the ingestion policy.
const (
	TextOptionsThreshold = 0.75
	CorrectTextThreshold = 0.85
)

type entry struct {
	key         string
	combined    string
	correctText string
}

// Detector scores candidates against every record accepted so far.
type Detector struct {
	metric  *metrics.SorensenDice
	entries []entry
}

func NewDetector() *Detector {
	m := metrics.NewSorensenDice()
	m.CaseSensitive = false
	m.NgramSize = 2
	return &Detector{metric: m}
}

// Add registers an accepted record so later candidates are compared
// against it.
func (d *Detector) Add(q *models.Question) {
	d.entries = append(d.entries, entry{
		key:         q.Key(),
		combined:    combinedText(q),
		correctText: normalizeForMatch(q.CorrectText()),
	})
}

// Len reports how many accepted records the index holds.
func (d *Detector) Len() int {
	return len(d.entries)
}

// IsNearDuplicate returns whether the candidate's similarity against any
// accepted record meets the threshold, with the best-matching record's key
// and score. Score is a normalized character-bigram similarity in [0, 1].
func (d *Detector) IsNearDuplicate(q *models.Question, field Field, threshold float64) (bool, string, float64) {
	var candidate string
	switch field {
	case FieldCorrectText:
		candidate = normalizeForMatch(q.CorrectText())
	default:
		candidate = combinedText(q)
	}

	bestKey := ""
	bestScore := 0.0
	for _, e := range d.entries {
		ref := e.combined
		if field == FieldCorrectText {
			ref = e.correctText
		}
		score := strutil.Similarity(candidate, ref, d.metric)
		if score > bestScore {
			bestScore = score
			bestKey = e.key
		}
	}

	return bestScore >= threshold, bestKey, bestScore
}

func combinedText(q *models.Question) string {
	parts := append([]string{q.Text}, q.Options...)
	return normalizeForMatch(strings.Join(parts, " "))
}

// normalizeForMatch lowercases and collapses whitespace so formatting
// differences never mask a duplicate.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
