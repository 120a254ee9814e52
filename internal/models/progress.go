package models

import (
	"time"

	"github.com/google/uuid"
)

type PracticeProgress struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	Field    string    `json:"field"`
	SubField string    `json:"sub_field"`
	SessionState
	TotalTimeSeconds int64      `json:"total_time_seconds"`
	Streak           int        `json:"streak"`
	BestStreak       int        `json:"best_streak"`
	LastPracticedAt  *time.Time `json:"last_practiced_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type SaveProgressRequest struct {
	Field          string             `json:"field"`
	SubField       string             `json:"sub_field"`
	QuestionIDs    []uuid.UUID        `json:"question_ids"`
	CurrentIndex   int                `json:"current_index"`
	Scores         map[string]float64 `json:"scores"`
	ElapsedSeconds int64              `json:"elapsed_seconds"`
}

type FieldStats struct {
	Field        string  `json:"field"`
	SubField     string  `json:"sub_field"`
	Questions    int     `json:"questions"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"average_score"`
}

type DashboardStats struct {
	TotalQuestions  int          `json:"total_questions"`
	PublicQuestions int          `json:"public_questions"`
	TotalAttempts   int          `json:"total_attempts"`
	AverageScore    float64      `json:"average_score"`
	ActiveSessions  int          `json:"active_sessions"`
	BestStreak      int          `json:"best_streak"`
	Fields          []FieldStats `json:"fields"`
}
