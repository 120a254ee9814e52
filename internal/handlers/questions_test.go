package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mockmate-backend/internal/models"
	"mockmate-backend/internal/services"
)

func TestQuestionHandler_Create(t *testing.T) {
	q := &models.Question{ID: uuid.New(), Question: "What is a race condition?"}
	svc := &stubQuestionService{question: q}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(map[string]interface{}{
		"field":     "Software Engineering",
		"sub_field": "Backend Development",
		"question":  "What is a race condition?",
		"is_public": true,
	})
	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/api/v1/questions", body))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, testUser, svc.lastUser)
	assert.Equal(t, "Backend Development", svc.lastCreate.SubField)
	assert.True(t, svc.lastCreate.IsPublic)
}

func TestQuestionHandler_CreateRejectsMalformedJSON(t *testing.T) {
	h := NewQuestionHandler(&stubQuestionService{})

	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/api/v1/questions", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rr).Code)
}

func TestQuestionHandler_GetInvalidID(t *testing.T) {
	h := NewQuestionHandler(&stubQuestionService{})

	rr := httptest.NewRecorder()
	h.Get(rr, newRequest(http.MethodGet, "/api/v1/questions/nope", nil, "id", "nope"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuestionHandler_GetForbidden(t *testing.T) {
	svc := &stubQuestionService{err: &services.ForbiddenError{Message: "Access denied"}}
	h := NewQuestionHandler(svc)
	id := uuid.New()

	rr := httptest.NewRecorder()
	h.Get(rr, newRequest(http.MethodGet, "/api/v1/questions/"+id.String(), nil, "id", id.String()))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, id, svc.lastID)
}

func TestQuestionHandler_ListPassesFilters(t *testing.T) {
	svc := &stubQuestionService{question: &models.Question{ID: uuid.New()}}
	h := NewQuestionHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, newRequest(http.MethodGet, "/api/v1/questions?field=Data+Science&sub_field=Statistics&difficulty=advanced&visibility=public&search=bayes&limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.QuestionFilter{
		Field:      "Data Science",
		SubField:   "Statistics",
		Difficulty: "advanced",
		Visibility: "public",
		Search:     "bayes",
		Limit:      5,
		Offset:     10,
	}, svc.lastFilter)

	var payload struct {
		Questions []models.Question `json:"questions"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Total)
	assert.Len(t, payload.Questions, 1)
}

func TestQuestionHandler_ListRejectsBadPaging(t *testing.T) {
	h := NewQuestionHandler(&stubQuestionService{})

	for _, target := range []string{"/api/v1/questions?limit=ten", "/api/v1/questions?offset=-1"} {
		rr := httptest.NewRecorder()
		h.List(rr, newRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestQuestionHandler_PracticeDefaultsCount(t *testing.T) {
	svc := &stubQuestionService{question: &models.Question{ID: uuid.New()}}
	h := NewQuestionHandler(svc)

	rr := httptest.NewRecorder()
	h.Practice(rr, newRequest(http.MethodGet, "/api/v1/questions/practice?field=Data+Science&sub_field=Statistics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 10, svc.lastPract.Count)
	assert.Equal(t, "Statistics", svc.lastPract.SubField)
}

func TestQuestionHandler_SubmitAttempt(t *testing.T) {
	id := uuid.New()
	svc := &stubQuestionService{question: &models.Question{ID: id}}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(map[string]string{"answer": "Use a mutex."})
	rr := httptest.NewRecorder()
	h.SubmitAttempt(rr, newRequest(http.MethodPost, "/api/v1/questions/"+id.String()+"/attempts", body, "id", id.String()))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Use a mutex.", svc.lastAnswer)

	var res services.AttemptResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, 7.0, res.Attempt.Score)
}

func TestQuestionHandler_SubmitAttemptAIFailure(t *testing.T) {
	id := uuid.New()
	h := NewQuestionHandler(&stubQuestionService{err: &services.AIError{Message: "Failed to evaluate answer"}})

	body, _ := json.Marshal(map[string]string{"answer": "x"})
	rr := httptest.NewRecorder()
	h.SubmitAttempt(rr, newRequest(http.MethodPost, "/", body, "id", id.String()))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "AI_ERROR", decodeError(t, rr).Code)
}

func TestQuestionHandler_DeleteNote(t *testing.T) {
	svc := &stubQuestionService{}
	h := NewQuestionHandler(svc)
	qID, noteID := uuid.New(), uuid.New()

	rr := httptest.NewRecorder()
	h.DeleteNote(rr, newRequest(http.MethodDelete, "/", nil, "id", qID.String(), "noteId", noteID.String()))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, qID, svc.lastID)
	assert.Equal(t, noteID, svc.lastNoteID)
}

func TestQuestionHandler_SetVisibility(t *testing.T) {
	id := uuid.New()
	svc := &stubQuestionService{question: &models.Question{ID: id}}
	h := NewQuestionHandler(svc)

	rr := httptest.NewRecorder()
	h.SetVisibility(rr, newRequest(http.MethodPut, "/", []byte(`{"is_public":true}`), "id", id.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	var q models.Question
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&q))
	assert.True(t, q.IsPublic)
}
