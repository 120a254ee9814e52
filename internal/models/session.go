package models

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrIndexOutOfRange = errors.New("current_index out of range")
	ErrUnknownQuestion = errors.New("question is not part of this session")
)

// SessionState is the resumable part of a practice session, shared by
// question groups and practice progress.
type SessionState struct {
	QuestionIDs  []uuid.UUID        `json:"question_ids"`
	CurrentIndex int                `json:"current_index"`
	Scores       map[string]float64 `json:"scores"`
	Completed    bool               `json:"completed"`
}

func NewSessionState(ids []uuid.UUID) SessionState {
	s := SessionState{QuestionIDs: ids, Scores: map[string]float64{}}
	s.Normalize()
	return s
}

func (s *SessionState) Contains(id uuid.UUID) bool {
	for _, q := range s.QuestionIDs {
		if q == id {
			return true
		}
	}
	return false
}

// SetIndex moves the cursor. len(QuestionIDs) is a valid index and marks the
// session as finished.
func (s *SessionState) SetIndex(i int) error {
	if i < 0 || i > len(s.QuestionIDs) {
		return ErrIndexOutOfRange
	}
	s.CurrentIndex = i
	s.Completed = len(s.QuestionIDs) > 0 && i == len(s.QuestionIDs)
	return nil
}

func (s *SessionState) RecordScore(id uuid.UUID, score float64) error {
	if !s.Contains(id) {
		return ErrUnknownQuestion
	}
	if s.Scores == nil {
		s.Scores = map[string]float64{}
	}
	s.Scores[id.String()] = ClampScore(score)
	return nil
}

// Normalize repairs a state that arrived from a client or an older row:
// the index is pinned to [0, len], scores are clamped and scores for ids
// outside the session are dropped.
func (s *SessionState) Normalize() {
	if s.QuestionIDs == nil {
		s.QuestionIDs = []uuid.UUID{}
	}
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	if s.CurrentIndex > len(s.QuestionIDs) {
		s.CurrentIndex = len(s.QuestionIDs)
	}

	known := make(map[string]struct{}, len(s.QuestionIDs))
	for _, id := range s.QuestionIDs {
		known[id.String()] = struct{}{}
	}
	cleaned := make(map[string]float64, len(s.Scores))
	for k, v := range s.Scores {
		if _, ok := known[k]; ok {
			cleaned[k] = ClampScore(v)
		}
	}
	s.Scores = cleaned

	if len(s.QuestionIDs) > 0 && s.CurrentIndex == len(s.QuestionIDs) {
		s.Completed = true
	}
}

// AverageScore averages the recorded scores; zero when none are recorded.
func (s *SessionState) AverageScore() float64 {
	if len(s.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Scores {
		sum += v
	}
	return sum / float64(len(s.Scores))
}
