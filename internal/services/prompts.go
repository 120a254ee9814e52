package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"mockmate-backend/internal/models"
)

// EvaluationInput is what the AI provider needs to grade one answer.
type EvaluationInput struct {
	Question        string
	Answer          string
	CanonicalAnswer string
	Field           string
	SubField        string
}

func buildGenerationPrompt(req models.GenerateQuestionsRequest) string {
	var b strings.Builder

	b.WriteString("You are an experienced technical interviewer. Write interview questions a candidate could be asked in a real interview.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(fmt.Sprintf("Field: %s\n", req.Field))
	b.WriteString(fmt.Sprintf("Specialisation: %s\n", req.SubField))
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", req.Count))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))

	switch req.Difficulty {
	case models.DifficultyBeginner:
		b.WriteString("Beginner = definitions and fundamentals a junior candidate must know.\n")
	case models.DifficultyIntermediate:
		b.WriteString("Intermediate = applying concepts to realistic scenarios and trade-offs.\n")
	case models.DifficultyAdvanced:
		b.WriteString("Advanced = design, debugging and deep reasoning expected from a senior candidate.\n")
	}

	b.WriteString(`
Rules:
- Each question must be answerable verbally in two to four minutes
- No two questions may test the same concept
- The answer is the model answer an interviewer would hope to hear, under 150 words

JSON schema per question:
{"question": "string", "answer": "string"}
`)

	return b.String()
}

func buildEvaluationPrompt(in EvaluationInput) string {
	var b strings.Builder

	b.WriteString("You are an interview coach grading a candidate's answer.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	if in.Field != "" {
		b.WriteString(fmt.Sprintf("Field: %s", in.Field))
		if in.SubField != "" {
			b.WriteString(fmt.Sprintf(" / %s", in.SubField))
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Score from 0 to 10 where 0 is no answer or entirely wrong and 10 is an answer a strong candidate would give.
Rate clarity, completeness, accuracy and relevance on the same 0 to 10 scale.
Feedback is two to four sentences addressed to the candidate.

JSON schema:
{"score": number, "feedback": "string", "metrics": {"clarity": number, "completeness": number, "accuracy": number, "relevance": number, "strengths": ["string"], "improvements": ["string"]}}
`)

	b.WriteString("\n---QUESTION---\n")
	b.WriteString(in.Question)
	if in.CanonicalAnswer != "" {
		b.WriteString("\n---REFERENCE ANSWER---\n")
		b.WriteString(in.CanonicalAnswer)
	}
	b.WriteString("\n---CANDIDATE ANSWER---\n")
	b.WriteString(in.Answer)
	b.WriteString("\n---END---\n")

	return b.String()
}

const transcriptionPrompt = "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// parseGeneratedQuestions decodes the model output, tolerating prose around
// the JSON array. Entries without a question are dropped.
func parseGeneratedQuestions(raw string) ([]models.GeneratedQuestion, error) {
	text := stripFences(raw)

	var questions []models.GeneratedQuestion
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in model output")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &questions); err != nil {
			return nil, fmt.Errorf("invalid question JSON: %w", err)
		}
	}

	valid := make([]models.GeneratedQuestion, 0, len(questions))
	for _, q := range questions {
		q.Question = strings.TrimSpace(q.Question)
		q.Answer = strings.TrimSpace(q.Answer)
		if q.Question == "" {
			continue
		}
		valid = append(valid, q)
	}
	return valid, nil
}

// parseEvaluation decodes the grading object and clamps every number into
// the score range.
func parseEvaluation(raw string) (*models.Evaluation, error) {
	text := stripFences(raw)

	var ev models.Evaluation
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in model output")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &ev); err != nil {
			return nil, fmt.Errorf("invalid evaluation JSON: %w", err)
		}
	}

	ev.Score = models.ClampScore(ev.Score)
	ev.Metrics = ev.Metrics.Clamp()
	ev.Feedback = strings.TrimSpace(ev.Feedback)
	return &ev, nil
}
