package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

const (
	MinScore = 0.0
	MaxScore = 10.0
)

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ClampScore pins a score into [MinScore, MaxScore].
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

type Question struct {
	ID             uuid.UUID      `json:"id"`
	UserID         string         `json:"user_id"`
	Field          string         `json:"field"`
	SubField       string         `json:"sub_field"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	Difficulty     string         `json:"difficulty"`
	IsPublic       bool           `json:"is_public"`
	Scores         []float64      `json:"scores"`
	AverageScore   float64        `json:"average_score"`
	TimesAnswered  int            `json:"times_answered"`
	CreatedAt      time.Time      `json:"created_at"`
	LastReviewedAt *time.Time     `json:"last_reviewed_at"`
	Notes          []QuestionNote `json:"notes,omitempty"`
}

type AnswerMetrics struct {
	Clarity      float64  `json:"clarity"`
	Completeness float64  `json:"completeness"`
	Accuracy     float64  `json:"accuracy"`
	Relevance    float64  `json:"relevance"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Clamp bounds every numeric metric to the score range.
func (m AnswerMetrics) Clamp() AnswerMetrics {
	m.Clarity = ClampScore(m.Clarity)
	m.Completeness = ClampScore(m.Completeness)
	m.Accuracy = ClampScore(m.Accuracy)
	m.Relevance = ClampScore(m.Relevance)
	if m.Strengths == nil {
		m.Strengths = []string{}
	}
	if m.Improvements == nil {
		m.Improvements = []string{}
	}
	return m
}

type QuestionAttempt struct {
	ID         uuid.UUID     `json:"id"`
	QuestionID uuid.UUID     `json:"question_id"`
	UserID     string        `json:"user_id"`
	Answer     string        `json:"answer"`
	Score      float64       `json:"score"`
	Feedback   string        `json:"feedback"`
	Metrics    AnswerMetrics `json:"metrics"`
	CreatedAt  time.Time     `json:"created_at"`
}

type QuestionNote struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Evaluation is the AI verdict on a single answer.
type Evaluation struct {
	Score    float64       `json:"score"`
	Feedback string        `json:"feedback"`
	Metrics  AnswerMetrics `json:"metrics"`
}

type GeneratedQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionFilter narrows a question listing. Visibility is one of
// "", "public" or "private".
type QuestionFilter struct {
	Field      string
	SubField   string
	Difficulty string
	Visibility string
	Search     string
	Limit      int
	Offset     int
}

type CreateQuestionRequest struct {
	Field      string `json:"field"`
	SubField   string `json:"sub_field"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
	IsPublic   bool   `json:"is_public"`
}

type UpdateQuestionRequest struct {
	Question   *string `json:"question"`
	Answer     *string `json:"answer"`
	Difficulty *string `json:"difficulty"`
}

type SetVisibilityRequest struct {
	IsPublic bool `json:"is_public"`
}

type AddNoteRequest struct {
	Content string `json:"content"`
}

type SubmitAttemptRequest struct {
	Answer string `json:"answer"`
}

type GenerateQuestionsRequest struct {
	Field      string `json:"field"`
	SubField   string `json:"sub_field"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Public     bool   `json:"public"`
}

type EvaluateAnswerRequest struct {
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	CanonicalAnswer string `json:"canonical_answer"`
	Field           string `json:"field"`
}

type PracticeRequest struct {
	Field      string
	SubField   string
	Difficulty string
	Count      int
}
