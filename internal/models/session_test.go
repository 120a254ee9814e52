package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-3, 0},
		{0, 0},
		{7.5, 7.5},
		{10, 10},
		{42, 10},
		{math.NaN(), 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClampScore(tc.in))
	}
}

func TestSessionState_SetIndexBounds(t *testing.T) {
	s := NewSessionState([]uuid.UUID{uuid.New(), uuid.New()})

	require.NoError(t, s.SetIndex(1))
	assert.False(t, s.Completed)

	require.NoError(t, s.SetIndex(2))
	assert.True(t, s.Completed)

	assert.ErrorIs(t, s.SetIndex(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetIndex(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, s.CurrentIndex)
}

func TestSessionState_RecordScore(t *testing.T) {
	a := uuid.New()
	s := NewSessionState([]uuid.UUID{a})

	require.NoError(t, s.RecordScore(a, 14))
	assert.Equal(t, 10.0, s.Scores[a.String()])

	assert.ErrorIs(t, s.RecordScore(uuid.New(), 5), ErrUnknownQuestion)
}

func TestSessionState_Normalize(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := SessionState{
		QuestionIDs:  []uuid.UUID{a, b},
		CurrentIndex: 9,
		Scores: map[string]float64{
			a.String():          -2,
			uuid.New().String(): 5,
		},
	}

	s.Normalize()

	assert.Equal(t, 2, s.CurrentIndex)
	assert.True(t, s.Completed)
	assert.Equal(t, map[string]float64{a.String(): 0}, s.Scores)
}

func TestSessionState_NormalizeEmpty(t *testing.T) {
	s := SessionState{CurrentIndex: -4}
	s.Normalize()

	assert.Equal(t, 0, s.CurrentIndex)
	assert.False(t, s.Completed)
	assert.NotNil(t, s.QuestionIDs)
	assert.NotNil(t, s.Scores)
}

func TestSessionState_AverageScore(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := NewSessionState([]uuid.UUID{a, b})
	assert.Equal(t, 0.0, s.AverageScore())

	require.NoError(t, s.RecordScore(a, 6))
	require.NoError(t, s.RecordScore(b, 9))
	assert.InDelta(t, 7.5, s.AverageScore(), 1e-9)
}

func TestQuestionGroup_EmbeddedStateIsFlattenedInJSON(t *testing.T) {
	id := uuid.New()
	g := QuestionGroup{Name: "Go basics", SessionState: NewSessionState([]uuid.UUID{id})}

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Contains(t, out, "question_ids")
	assert.Contains(t, out, "current_index")
	assert.NotContains(t, out, "SessionState")
}

func TestAnswerMetrics_Clamp(t *testing.T) {
	m := AnswerMetrics{Clarity: 11, Completeness: -1, Accuracy: 5, Relevance: 10}.Clamp()

	assert.Equal(t, 10.0, m.Clarity)
	assert.Equal(t, 0.0, m.Completeness)
	assert.Equal(t, 5.0, m.Accuracy)
	assert.NotNil(t, m.Strengths)
	assert.NotNil(t, m.Improvements)
}

func TestValidDifficulty(t *testing.T) {
	assert.True(t, ValidDifficulty("beginner"))
	assert.True(t, ValidDifficulty("advanced"))
	assert.False(t, ValidDifficulty("expert"))
	assert.False(t, ValidDifficulty(""))
}
