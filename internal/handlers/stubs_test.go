package handlers

import (
	"bytes"
	"context"
	"io"

	"github.com/google/uuid"

	"mockmate-backend/internal/models"
	"mockmate-backend/internal/services"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

type stubQuestionService struct {
	question   *models.Question
	err        error
	lastUser   string
	lastID     uuid.UUID
	lastNoteID uuid.UUID
	lastFilter models.QuestionFilter
	lastCreate models.CreateQuestionRequest
	lastPract  models.PracticeRequest
	lastAnswer string
}

func (s *stubQuestionService) Create(ctx context.Context, userID string, req models.CreateQuestionRequest) (*models.Question, error) {
	s.lastUser, s.lastCreate = userID, req
	return s.question, s.err
}

func (s *stubQuestionService) List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error) {
	s.lastUser, s.lastFilter = userID, f
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*models.Question{s.question}, 1, nil
}

func (s *stubQuestionService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Question, error) {
	s.lastUser, s.lastID = userID, id
	return s.question, s.err
}

func (s *stubQuestionService) Update(ctx context.Context, userID string, id uuid.UUID, req models.UpdateQuestionRequest) (*models.Question, error) {
	s.lastUser, s.lastID = userID, id
	return s.question, s.err
}

func (s *stubQuestionService) SetVisibility(ctx context.Context, userID string, id uuid.UUID, public bool) (*models.Question, error) {
	s.lastUser, s.lastID = userID, id
	if s.question != nil {
		s.question.IsPublic = public
	}
	return s.question, s.err
}

func (s *stubQuestionService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	s.lastUser, s.lastID = userID, id
	return s.err
}

func (s *stubQuestionService) Practice(ctx context.Context, userID string, req models.PracticeRequest) ([]*models.Question, error) {
	s.lastUser, s.lastPract = userID, req
	if s.err != nil {
		return nil, s.err
	}
	return []*models.Question{s.question}, nil
}

func (s *stubQuestionService) SubmitAttempt(ctx context.Context, userID string, id uuid.UUID, answer string) (*services.AttemptResult, error) {
	s.lastUser, s.lastID, s.lastAnswer = userID, id, answer
	if s.err != nil {
		return nil, s.err
	}
	return &services.AttemptResult{
		Attempt:  &models.QuestionAttempt{QuestionID: id, UserID: userID, Answer: answer, Score: 7},
		Question: s.question,
	}, nil
}

func (s *stubQuestionService) ListAttempts(ctx context.Context, userID string, id uuid.UUID, limit int) ([]*models.QuestionAttempt, error) {
	s.lastUser, s.lastID = userID, id
	return []*models.QuestionAttempt{}, s.err
}

func (s *stubQuestionService) AddNote(ctx context.Context, userID string, id uuid.UUID, content string) (*models.QuestionNote, error) {
	s.lastUser, s.lastID = userID, id
	if s.err != nil {
		return nil, s.err
	}
	return &models.QuestionNote{ID: uuid.New(), QuestionID: id, UserID: userID, Content: content}, nil
}

func (s *stubQuestionService) DeleteNote(ctx context.Context, userID string, questionID, noteID uuid.UUID) error {
	s.lastUser, s.lastID, s.lastNoteID = userID, questionID, noteID
	return s.err
}

type stubAIService struct {
	result        *services.GenerationResult
	evaluation    *models.Evaluation
	transcript    string
	err           error
	lastMime      string
	lastAudio     string
	lastGenerate  models.GenerateQuestionsRequest
	transcribeHit bool
}

func (s *stubAIService) Generate(ctx context.Context, userID string, req models.GenerateQuestionsRequest) (*services.GenerationResult, error) {
	s.lastGenerate = req
	return s.result, s.err
}

func (s *stubAIService) Evaluate(ctx context.Context, req models.EvaluateAnswerRequest) (*models.Evaluation, error) {
	return s.evaluation, s.err
}

func (s *stubAIService) Transcribe(ctx context.Context, audio io.Reader, mimeType string) (string, error) {
	s.transcribeHit = true
	s.lastMime = mimeType
	b, _ := io.ReadAll(audio)
	s.lastAudio = string(b)
	return s.transcript, s.err
}

type stubCreditService struct {
	balance    *models.CreditBalance
	refreshed  bool
	err        error
	lastAmount int
}

func (s *stubCreditService) Check(ctx context.Context, userID string) (*models.CreditBalance, error) {
	return s.balance, s.err
}

func (s *stubCreditService) Deduct(ctx context.Context, userID string, amount int) (*models.CreditBalance, error) {
	s.lastAmount = amount
	return s.balance, s.err
}

func (s *stubCreditService) Refresh(ctx context.Context, userID string) (*models.CreditBalance, bool, error) {
	return s.balance, s.refreshed, s.err
}

type stubProgressService struct {
	progress  *models.PracticeProgress
	err       error
	lastField string
	lastSub   string
	lastSave  models.SaveProgressRequest
}

func (s *stubProgressService) Save(ctx context.Context, userID string, req models.SaveProgressRequest) (*models.PracticeProgress, error) {
	s.lastSave = req
	return s.progress, s.err
}

func (s *stubProgressService) Load(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error) {
	s.lastField, s.lastSub = field, subField
	return s.progress, s.err
}

func (s *stubProgressService) List(ctx context.Context, userID string) ([]*models.PracticeProgress, error) {
	return []*models.PracticeProgress{}, s.err
}

func (s *stubProgressService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.err
}

type stubGroupService struct {
	group      *models.QuestionGroup
	err        error
	lastUpdate models.UpdateGroupProgressRequest
	lastName   string
}

func (s *stubGroupService) Create(ctx context.Context, userID string, req models.CreateGroupRequest) (*services.GroupDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.GroupDetail{QuestionGroup: s.group, Questions: []*models.Question{}}, nil
}

func (s *stubGroupService) List(ctx context.Context, userID string) ([]*models.QuestionGroup, error) {
	return []*models.QuestionGroup{s.group}, s.err
}

func (s *stubGroupService) Get(ctx context.Context, userID string, id uuid.UUID) (*services.GroupDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.GroupDetail{QuestionGroup: s.group, Questions: []*models.Question{}}, nil
}

func (s *stubGroupService) UpdateProgress(ctx context.Context, userID string, id uuid.UUID, req models.UpdateGroupProgressRequest) (*models.QuestionGroup, error) {
	s.lastUpdate = req
	return s.group, s.err
}

func (s *stubGroupService) Rename(ctx context.Context, userID string, id uuid.UUID, name string) (*models.QuestionGroup, error) {
	s.lastName = name
	return s.group, s.err
}

func (s *stubGroupService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.err
}
