// Package pipeline implements the ten-checkpoint validation chain.
// Rule-based checkpoints run first and reject outright; LLM-backed ones
// follow, ordered so policy violations are caught before spending calls on
// nuanced judgment. Disagreement-prone checks flag for human review
// instead of rejecting.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/concours-prep/pipeline/internal/dedupe"
	"github.com/concours-prep/pipeline/internal/llm"
	"github.com/concours-prep/pipeline/internal/models"
)

// Checkpoint is one discrete pass/fail/flag stage. The prefix checkpoint
// mutates the record; everything else treats it as read-only. Checkpoints
// that dedupe also receive the accumulated batch.
type Checkpoint interface {
	Name() string
	Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult
}

// Batch accumulates the records accepted so far in this run. It backs the
// duplicate checkpoints and the semantic-duplicate sampling window.
type Batch struct {
	Detector *dedupe.Detector
	Accepted []*models.Question
}

func NewBatch() *Batch {
	return &Batch{Detector: dedupe.NewDetector()}
}

func (b *Batch) accept(q *models.Question) {
	b.Accepted = append(b.Accepted, q)
	b.Detector.Add(q)
}

// RecentSample returns up to n of the most recently accepted records.
func (b *Batch) RecentSample(n int) []*models.Question {
	if len(b.Accepted) <= n {
		return b.Accepted
	}
	return b.Accepted[len(b.Accepted)-n:]
}

// AuditSink receives every verdict for the audit trail.
type AuditSink interface {
	Record(ctx context.Context, runID uuid.UUID, q *models.Question, res models.CheckResult) error
}

// NopSink discards audit records; used by dry runs.
type NopSink struct{}

func (NopSink) Record(context.Context, uuid.UUID, *models.Question, models.CheckResult) error {
	return nil
}

// Outcome is a record's terminal state after the chain.
type Outcome struct {
	Question  *models.Question
	Accepted  bool
	Flags     []models.CheckResult
	Rejection *models.CheckResult
}

// Chain runs the ten checkpoints in their required order.
type Chain struct {
	runID       uuid.UUID
	checkpoints []Checkpoint
	audit       AuditSink
}

// NewChain wires the full chain. judge handles every single-provider LLM
// checkpoint; second is the independent provider for the category check.
func NewChain(judge llm.Client, second llm.Client, audit AuditSink) *Chain {
	if audit == nil {
		audit = NopSink{}
	}
	return &Chain{
		runID: uuid.New(),
		checkpoints: []Checkpoint{
			&StructuralCheck{},
			&PrefixCheck{},
			&AnswerabilityCheck{LLM: judge},
			&ContentPolicyCheck{LLM: judge},
			&AnswerVerificationCheck{LLM: judge},
			&TextOptionsDuplicateCheck{},
			&SemanticDuplicateCheck{LLM: judge},
			&CorrectAnswerDuplicateCheck{},
			&CategoryCheck{Primary: judge, Secondary: second},
			&ExplanationQualityCheck{LLM: judge},
		},
		audit: audit,
	}
}

func (c *Chain) RunID() uuid.UUID { return c.runID }

// Process runs one record through the chain. A reject short-circuits;
// flags accumulate; a checkpoint panic is downgraded to a flag so one bad
// model response never kills the run.
func (c *Chain) Process(ctx context.Context, q *models.Question, batch *Batch) Outcome {
	outcome := Outcome{Question: q}

	for _, cp := range c.checkpoints {
		res := c.safeCheck(ctx, cp, q, batch)

		if err := c.audit.Record(ctx, c.runID, q, res); err != nil {
			log.Printf("WARN: audit write failed for %s at %s: %v", q.Key(), cp.Name(), err)
		}

		switch res.Verdict {
		case models.VerdictReject:
			log.Printf("REJECT %s at %s: %s", q.Key(), res.Checkpoint, res.Reason)
			outcome.Rejection = &res
			return outcome
		case models.VerdictFlag:
			log.Printf("FLAG %s at %s: %s", q.Key(), res.Checkpoint, res.Reason)
			outcome.Flags = append(outcome.Flags, res)
		}
	}

	outcome.Accepted = true
	batch.accept(q)
	return outcome
}

func (c *Chain) safeCheck(ctx context.Context, cp Checkpoint, q *models.Question, batch *Batch) (res models.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.CheckResult{
				Checkpoint: cp.Name(),
				Verdict:    models.VerdictFlag,
				Reason:     fmt.Sprintf("checkpoint panicked: %v", r),
			}
		}
	}()
	return cp.Check(ctx, q, batch)
}

// Report summarizes a whole run.
type Report struct {
	RunID               string         `json:"run_id"`
	Processed           int            `json:"processed"`
	Accepted            int            `json:"accepted"`
	Flagged             int            `json:"flagged"`
	Rejected            int            `json:"rejected"`
	RejectsByCheckpoint map[string]int `json:"rejects_by_checkpoint"`
	Outcomes            []Outcome      `json:"-"`
}

// Run processes every record sequentially against a fresh batch.
func (c *Chain) Run(ctx context.Context, questions []models.Question) Report {
	batch := NewBatch()
	report := Report{
		RunID:               c.runID.String(),
		RejectsByCheckpoint: make(map[string]int),
	}

	for i := range questions {
		outcome := c.Process(ctx, &questions[i], batch)
		report.Processed++
		switch {
		case outcome.Rejection != nil:
			report.Rejected++
			report.RejectsByCheckpoint[outcome.Rejection.Checkpoint]++
		case len(outcome.Flags) > 0:
			report.Flagged++
		default:
			report.Accepted++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report
}

func pass(name string) models.CheckResult {
	return models.CheckResult{Checkpoint: name, Verdict: models.VerdictPass}
}

func reject(name, reason string) models.CheckResult {
	return models.CheckResult{Checkpoint: name, Verdict: models.VerdictReject, Reason: reason}
}

func flag(name, reason string) models.CheckResult {
	return models.CheckResult{Checkpoint: name, Verdict: models.VerdictFlag, Reason: reason}
}
