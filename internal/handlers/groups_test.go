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

func TestGroupHandler_UpdateProgress(t *testing.T) {
	id := uuid.New()
	qid := uuid.New()
	group := &models.QuestionGroup{ID: id, SessionState: models.NewSessionState([]uuid.UUID{qid})}
	svc := &stubGroupService{group: group}
	h := NewGroupHandler(svc)

	body, _ := json.Marshal(map[string]interface{}{
		"current_index": 1,
		"question_id":   qid,
		"score":         8.5,
	})
	rr := httptest.NewRecorder()
	h.UpdateProgress(rr, newRequest(http.MethodPut, "/", body, "id", id.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, svc.lastUpdate.CurrentIndex)
	require.NotNil(t, svc.lastUpdate.QuestionID)
	assert.Equal(t, qid, *svc.lastUpdate.QuestionID)
	require.NotNil(t, svc.lastUpdate.Score)
	assert.Equal(t, 8.5, *svc.lastUpdate.Score)
}

func TestGroupHandler_GetFlattensSessionState(t *testing.T) {
	id := uuid.New()
	qid := uuid.New()
	group := &models.QuestionGroup{ID: id, Name: "Warm-up", SessionState: models.NewSessionState([]uuid.UUID{qid})}
	h := NewGroupHandler(&stubGroupService{group: group})

	rr := httptest.NewRecorder()
	h.Get(rr, newRequest(http.MethodGet, "/", nil, "id", id.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	assert.Equal(t, "Warm-up", payload["name"])
	assert.Equal(t, float64(0), payload["current_index"])
	assert.Len(t, payload["question_ids"], 1)
	assert.Contains(t, payload, "questions")
}

func TestGroupHandler_RenameNotFound(t *testing.T) {
	svc := &stubGroupService{err: &services.NotFoundError{Message: "Group not found"}}
	h := NewGroupHandler(svc)

	rr := httptest.NewRecorder()
	h.Rename(rr, newRequest(http.MethodPut, "/", []byte(`{"name":"New"}`), "id", uuid.New().String()))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "New", svc.lastName)
}
