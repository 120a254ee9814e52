package models

import (
	"time"

	"github.com/google/uuid"
)

type QuestionGroup struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Field    string    `json:"field"`
	SubField string    `json:"sub_field"`
	SessionState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateGroupRequest takes either explicit QuestionIDs or a Count, in which
// case a practice sample is drawn.
type CreateGroupRequest struct {
	Name        string      `json:"name"`
	Field       string      `json:"field"`
	SubField    string      `json:"sub_field"`
	Difficulty  string      `json:"difficulty"`
	QuestionIDs []uuid.UUID `json:"question_ids"`
	Count       int         `json:"count"`
}

type UpdateGroupProgressRequest struct {
	CurrentIndex int        `json:"current_index"`
	QuestionID   *uuid.UUID `json:"question_id"`
	Score        *float64   `json:"score"`
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}
