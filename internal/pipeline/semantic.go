package pipeline

import (
	"context"
	"fmt"

	"github.com/concours-prep/pipeline/internal/llm"
	"github.com/concours-prep/pipeline/internal/models"
)

const (
	// A verification disagreement only flags when the model is at least
	// this confident.
	verifyConfidenceThreshold = 70
	// Semantic-duplicate score at or above this flags for review.
	semanticDupThreshold = 0.6
	// How many recently accepted records the semantic check compares
	// against.
	semanticSampleSize = 10
)

// AnswerabilityCheck is checkpoint 3: the question must be answerable
// unambiguously from the given options alone.
type AnswerabilityCheck struct {
	LLM llm.Client
}

func (c *AnswerabilityCheck) Name() string { return "text_content_quality" }

func (c *AnswerabilityCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	var out struct {
		Answerable bool   `json:"answerable"`
		Reason     string `json:"reason"`
	}
	if res, ok := judge(ctx, c.LLM, c.Name(), answerabilitySystemPrompt, buildAnswerabilityPrompt(q), &out); !ok {
		return res
	}
	if !out.Answerable {
		return reject(c.Name(), out.Reason)
	}
	return pass(c.Name())
}

// ContentPolicyCheck is checkpoint 4: excluded topics and the
// subject-language rule are hard rejects.
type ContentPolicyCheck struct {
	LLM llm.Client
}

func (c *ContentPolicyCheck) Name() string { return "content_restrictions" }

func (c *ContentPolicyCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	var out struct {
		Allowed    bool   `json:"allowed"`
		LanguageOK bool   `json:"language_ok"`
		Reason     string `json:"reason"`
	}
	if res, ok := judge(ctx, c.LLM, c.Name(), contentPolicySystemPrompt, buildContentPolicyPrompt(q), &out); !ok {
		return res
	}
	if !out.Allowed {
		return reject(c.Name(), out.Reason)
	}
	if !out.LanguageOK {
		return reject(c.Name(), fmt.Sprintf("wrong language for subject %s: %s", q.Subject, out.Reason))
	}
	return pass(c.Name())
}

// AnswerVerificationCheck is checkpoint 5: the model re-derives the
// correct option cold. Disagreement flags rather than rejects, and only
// when the model is confident; correctness disputes go to a human.
type AnswerVerificationCheck struct {
	LLM llm.Client
}

func (c *AnswerVerificationCheck) Name() string { return "correct_answer_verification" }

func (c *AnswerVerificationCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	var out struct {
		SelectedIndex int    `json:"selected_index"`
		Confidence    int    `json:"confidence"`
		Reason        string `json:"reason"`
	}
	if res, ok := judge(ctx, c.LLM, c.Name(), verificationSystemPrompt, buildVerificationPrompt(q), &out); !ok {
		return res
	}
	if out.SelectedIndex != q.CorrectIndex && out.Confidence >= verifyConfidenceThreshold {
		return flag(c.Name(), fmt.Sprintf("model picked option %d over marked %d (confidence %d): %s",
			out.SelectedIndex, q.CorrectIndex, out.Confidence, out.Reason))
	}
	return pass(c.Name())
}

// SemanticDuplicateCheck is checkpoint 7: an LLM compares the candidate
// against a sample of recently accepted records. Flags, never rejects —
// semantic similarity judgments are disagreement-prone.
type SemanticDuplicateCheck struct {
	LLM llm.Client
}

func (c *SemanticDuplicateCheck) Name() string { return "semantic_duplicate" }

func (c *SemanticDuplicateCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	sample := batch.RecentSample(semanticSampleSize)
	if len(sample) == 0 {
		return pass(c.Name())
	}

	var out struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if res, ok := judge(ctx, c.LLM, c.Name(), semanticDupSystemPrompt, buildSemanticDupPrompt(q, sample), &out); !ok {
		return res
	}
	if out.Score >= semanticDupThreshold {
		return flag(c.Name(), fmt.Sprintf("semantic duplicate score %.2f: %s", out.Score, out.Reason))
	}
	return pass(c.Name())
}

// CategoryCheck is checkpoint 9: two independent providers must both agree
// with the subject assignment; either disagreeing (or failing) flags.
type CategoryCheck struct {
	Primary   llm.Client
	Secondary llm.Client
}

func (c *CategoryCheck) Name() string { return "category_validation" }

func (c *CategoryCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	type categoryJudgment struct {
		Agrees           bool   `json:"agrees"`
		SuggestedSubject string `json:"suggested_subject"`
		Reason           string `json:"reason"`
	}

	prompt := buildCategoryPrompt(q)
	for _, client := range []llm.Client{c.Primary, c.Secondary} {
		var out categoryJudgment
		if res, ok := judge(ctx, client, c.Name(), categorySystemPrompt, prompt, &out); !ok {
			return res
		}
		if !out.Agrees {
			return flag(c.Name(), fmt.Sprintf("%s disagrees with subject %s (suggests %s): %s",
				client.ModelName(), q.Subject, out.SuggestedSubject, out.Reason))
		}
	}
	return pass(c.Name())
}

// ExplanationQualityCheck is checkpoint 10: the explanation must be in the
// subject's required language and justify the answer, not restate it.
type ExplanationQualityCheck struct {
	LLM llm.Client
}

func (c *ExplanationQualityCheck) Name() string { return "explanation_quality" }

func (c *ExplanationQualityCheck) Check(ctx context.Context, q *models.Question, batch *Batch) models.CheckResult {
	var out struct {
		Acceptable bool   `json:"acceptable"`
		LanguageOK bool   `json:"language_ok"`
		Reason     string `json:"reason"`
	}
	if res, ok := judge(ctx, c.LLM, c.Name(), explanationSystemPrompt, buildExplanationPrompt(q), &out); !ok {
		return res
	}
	if !out.LanguageOK {
		return reject(c.Name(), fmt.Sprintf("explanation not in required language %s: %s", q.Subject.RequiredLanguage(), out.Reason))
	}
	if !out.Acceptable {
		return reject(c.Name(), out.Reason)
	}
	return pass(c.Name())
}

// judge runs one model call and decodes the judgment. Any failure — call
// error or malformed response — becomes a flag, never a silent pass.
func judge(ctx context.Context, client llm.Client, name, system, prompt string, out any) (models.CheckResult, bool) {
	resp, err := client.Generate(ctx, system, prompt)
	if err != nil {
		return flag(name, fmt.Sprintf("model call failed: %v", err)), false
	}
	if err := llm.DecodeJudgment(resp.Content, out); err != nil {
		return flag(name, fmt.Sprintf("unparseable model response: %v", err)), false
	}
	return models.CheckResult{}, true
}
