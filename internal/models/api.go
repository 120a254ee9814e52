package models

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Live event types pushed over the websocket.
const (
	EventQuestionsGenerated = "questions_generated"
	EventAttemptScored      = "attempt_scored"
	EventCreditsUpdated     = "credits_updated"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// UserChannel is the Redis pub/sub channel carrying one user's live events.
func UserChannel(userID string) string {
	return "user_updates:" + userID
}
