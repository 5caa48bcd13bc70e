package models

import "fmt"

type Subject string

const (
	SubjectGeneralKnowledge Subject = "culture_generale"
	SubjectEnglish          Subject = "anglais"
	SubjectLogic            Subject = "logique"
)

var ValidSubjects = map[Subject]bool{
	SubjectGeneralKnowledge: true,
	SubjectEnglish:          true,
	SubjectLogic:            true,
}

// RequiredLanguage returns the language every question and explanation for
// the subject must be written in. anglais is the only English subject.
func (s Subject) RequiredLanguage() string {
	if s == SubjectEnglish {
		return "en"
	}
	return "fr"
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// TestType is the processing category a question is ingested for.
type TestType string

const (
	TestTypeExam      TestType = "exam"
	TestTypePractice  TestType = "practice"
	TestTypeFreeQuiz  TestType = "free_quiz"
	TestTypeQuickQuiz TestType = "quick_quiz"
)

var ValidTestTypes = map[TestType]bool{
	TestTypeExam:      true,
	TestTypePractice:  true,
	TestTypeFreeQuiz:  true,
	TestTypeQuickQuiz: true,
}

// ExamTier is the recruitment track bucket (three tracks).
type ExamTier string

const (
	TierSuperior     ExamTier = "cs"
	TierMiddle       ExamTier = "cm"
	TierIntermediate ExamTier = "ci"
)

var ValidExamTiers = map[ExamTier]bool{
	TierSuperior:     true,
	TierMiddle:       true,
	TierIntermediate: true,
}

// ── Source row variants ────────────────────────────────────

// LegacyRow mirrors the questions_legacy table: four nullable answer
// columns plus a letter pointing at the correct one.
type LegacyRow struct {
	ID          int64
	Text        string
	Answer1     *string
	Answer2     *string
	Answer3     *string
	Answer4     *string
	Correct     string // "A".."D"
	Explanation string
	Subject     string
	Difficulty  string // free vocabulary: "Easy", "Moyen", ...
	TestType    string
	ExamTier    string
}

// V2Row mirrors the questions_v2 table: options array + zero-based index.
type V2Row struct {
	ID           int64
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
	Subject      string
	Difficulty   string
	TestType     string
	ExamTier     string
}

const (
	SourceTableLegacy = "questions_legacy"
	SourceTableV2     = "questions_v2"
)

// ── Unified record ─────────────────────────────────────────

// Question is the single in-memory shape every pipeline stage works on.
// SourceTable and SourceID are provenance and are never mutated after
// normalization.
type Question struct {
	Text         string     `json:"text"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correct_index"`
	Explanation  string     `json:"explanation"`
	Subject      Subject    `json:"subject"`
	Difficulty   Difficulty `json:"difficulty"`
	TestType     TestType   `json:"test_type"`
	ExamTier     ExamTier   `json:"exam_type"`
	SourceTable  string     `json:"source_table"`
	SourceID     int64      `json:"source_id"`
}

// CorrectText returns the option the correct index points at, or "" when
// the index is out of range (the structural checkpoint catches that case).
func (q *Question) CorrectText() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Key identifies a record by provenance, e.g. "questions_legacy:4812".
func (q *Question) Key() string {
	return fmt.Sprintf("%s:%d", q.SourceTable, q.SourceID)
}

// ── Verdicts ───────────────────────────────────────────────

type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictReject Verdict = "reject"
	VerdictFlag   Verdict = "flag"
)

// CheckResult is one checkpoint's judgment on one record.
type CheckResult struct {
	Checkpoint string  `json:"checkpoint"`
	Verdict    Verdict `json:"verdict"`
	Reason     string  `json:"reason,omitempty"`
}

// ReviewStatus is the terminal state written to the output batch.
type ReviewStatus string

const (
	ReviewReady       ReviewStatus = "ready"
	ReviewNeedsReview ReviewStatus = "needs_review"
)

// ── Output schema ──────────────────────────────────────────

// OutputQuestion is the unified shape written to per-(tier, test type)
// batch files for manual review. QuestionNumber and SectionNumber are
// always null at write time; a human assigns them before the final insert.
type OutputQuestion struct {
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectIndex   int          `json:"correct_index"`
	CorrectText    string       `json:"correct_text"`
	Explanation    string       `json:"explanation"`
	Subject        Subject      `json:"subject"`
	Difficulty     Difficulty   `json:"difficulty"`
	TestType       TestType     `json:"test_type"`
	ExamTier       ExamTier     `json:"exam_type"`
	SourceTable    string       `json:"source_table"`
	SourceID       int64        `json:"source_id"`
	ReviewStatus   ReviewStatus `json:"review_status"`
	FlagReasons    []string     `json:"flag_reasons,omitempty"`
	QuestionNumber *int         `json:"question_number"`
	SectionNumber  *int         `json:"section_number"`
}

// ToOutput freezes a question plus its accumulated flags into the output
// schema.
func (q *Question) ToOutput(flags []CheckResult) OutputQuestion {
	out := OutputQuestion{
		Text:         q.Text,
		Options:      q.Options,
		CorrectIndex: q.CorrectIndex,
		CorrectText:  q.CorrectText(),
		Explanation:  q.Explanation,
		Subject:      q.Subject,
		Difficulty:   q.Difficulty,
		TestType:     q.TestType,
		ExamTier:     q.ExamTier,
		SourceTable:  q.SourceTable,
		SourceID:     q.SourceID,
		ReviewStatus: ReviewReady,
	}
	for _, f := range flags {
		out.FlagReasons = append(out.FlagReasons, fmt.Sprintf("%s: %s", f.Checkpoint, f.Reason))
	}
	if len(out.FlagReasons) > 0 {
		out.ReviewStatus = ReviewNeedsReview
	}
	return out
}
