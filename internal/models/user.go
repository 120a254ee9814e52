package models

import "time"

// User is keyed by the auth provider's subject id.
type User struct {
	ID                      string    `json:"id"`
	Credits                 int       `json:"credits"`
	TotalQuestionsGenerated int       `json:"total_questions_generated"`
	LastCreditRefreshAt     time.Time `json:"last_credit_refresh_at"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type CreditBalance struct {
	Credits                 int       `json:"credits"`
	TotalQuestionsGenerated int       `json:"total_questions_generated"`
	NextRefreshAt           time.Time `json:"next_refresh_at"`
}

type DeductCreditsRequest struct {
	Amount int `json:"amount"`
}
