package pipeline

import (
	"fmt"
	"strings"

	"github.com/concours-prep/pipeline/internal/models"
)

// System prompts for the LLM-backed checkpoints. Every prompt demands a
// bare JSON object so judgments stay machine-parseable.

const answerabilitySystemPrompt = `You are a senior editor reviewing multiple-choice questions for a civil-service exam preparation app. You judge whether a question can be answered unambiguously from its options alone, with no outside context, images, or missing passage. Respond with JSON only.`

const contentPolicySystemPrompt = `You are enforcing the content policy of a civil-service exam preparation app. Questions about living political figures or celebrities, religious affiliation, and trivia-level arithmetic (e.g. "what is 2+2") are excluded. Each subject also has a required language: culture_generale and logique are French-only, anglais is English-only. Respond with JSON only.`

const verificationSystemPrompt = `You are a subject-matter expert answering a multiple-choice question cold. Pick the best option from the choices alone, then state how confident you are that your pick is the only defensible answer. Respond with JSON only.`

const semanticDupSystemPrompt = `You compare a candidate multiple-choice question against a list of recently accepted questions and score how close the candidate is to testing the same fact or skill, from 0.0 (unrelated) to 1.0 (same question reworded). Respond with JSON only.`

const categorySystemPrompt = `You verify the subject classification of exam questions. Subjects: culture_generale (general knowledge, French), anglais (English language skills), logique (logic and numerical reasoning, French). Respond with JSON only.`

const explanationSystemPrompt = `You review answer explanations for exam questions. A good explanation is written in the subject's required language and substantively explains WHY the marked answer is correct; merely restating the answer is not acceptable. Respond with JSON only.`

// writeQuestion renders the shared QUESTION/OPTIONS block.
func writeQuestion(sb *strings.Builder, q *models.Question) {
	sb.WriteString("QUESTION:\n")
	sb.WriteString(q.Text)
	sb.WriteString("\n\nOPTIONS:\n")
	for i, opt := range q.Options {
		fmt.Fprintf(sb, "(%d) %s\n", i, opt)
	}
}

func buildAnswerabilityPrompt(q *models.Question) string {
	var sb strings.Builder
	writeQuestion(&sb, q)
	sb.WriteString(`
Can this question be answered unambiguously from the options alone?

Respond with JSON only:
{
  "answerable": true,
  "reason": "Why the question is or is not answerable as written..."
}`)
	return sb.String()
}

func buildContentPolicyPrompt(q *models.Question) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SUBJECT: %s (required language: %s)\n\n", q.Subject, q.Subject.RequiredLanguage())
	writeQuestion(&sb, q)
	sb.WriteString(`
Does this question comply with the content policy, and is it written in the subject's required language?

Respond with JSON only:
{
  "allowed": true,
  "language_ok": true,
  "reason": "Name the violated rule if any..."
}`)
	return sb.String()
}

func buildVerificationPrompt(q *models.Question) string {
	var sb strings.Builder
	writeQuestion(&sb, q)
	sb.WriteString(`
Select the best option. confidence is an integer 0-100: how sure you are that your selection is the only defensible answer.

Respond with JSON only:
{
  "selected_index": 0,
  "confidence": 85,
  "reason": "Why this option and not the others..."
}`)
	return sb.String()
}

func buildSemanticDupPrompt(q *models.Question, sample []*models.Question) string {
	var sb strings.Builder
	sb.WriteString("CANDIDATE:\n")
	sb.WriteString(q.Text)
	sb.WriteString("\n\nRECENTLY ACCEPTED:\n")
	for i, r := range sample {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Text)
	}
	sb.WriteString(`
Score the candidate's closest overlap with any accepted question, 0.0 to 1.0.

Respond with JSON only:
{
  "score": 0.2,
  "reason": "Which accepted question it resembles and how..."
}`)
	return sb.String()
}

func buildCategoryPrompt(q *models.Question) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ASSIGNED SUBJECT: %s\n\n", q.Subject)
	writeQuestion(&sb, q)
	sb.WriteString(`
Is the assigned subject correct for this question?

Respond with JSON only:
{
  "agrees": true,
  "suggested_subject": "culture_generale",
  "reason": "Why the assignment is right or wrong..."
}`)
	return sb.String()
}

func buildExplanationPrompt(q *models.Question) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SUBJECT: %s (required language: %s)\n\n", q.Subject, q.Subject.RequiredLanguage())
	writeQuestion(&sb, q)
	fmt.Fprintf(&sb, "\nMARKED CORRECT: (%d) %s\n\nEXPLANATION:\n%s\n", q.CorrectIndex, q.CorrectText(), q.Explanation)
	sb.WriteString(`
Is the explanation in the required language, and does it substantively explain why the marked answer is correct rather than restating it?

Respond with JSON only:
{
  "acceptable": true,
  "language_ok": true,
  "reason": "What the explanation does well or fails to do..."
}`)
	return sb.String()
}
