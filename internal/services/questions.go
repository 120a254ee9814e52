package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/taxonomy"
)

const (
	MaxPracticeCount  = 50
	maxQuestionLength = 4000
	maxAnswerLength   = 10000
	maxNoteLength     = 2000
)

type questionStore interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	GetAccessible(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error)
	List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error)
	SampleOwn(ctx context.Context, userID string, req models.PracticeRequest, n int) ([]*models.Question, error)
	SamplePublic(ctx context.Context, userID string, req models.PracticeRequest, exclude []uuid.UUID, n int) ([]*models.Question, error)
	Update(ctx context.Context, q *models.Question) error
	SetVisibility(ctx context.Context, id uuid.UUID, public bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordAttempt(ctx context.Context, a *models.QuestionAttempt, countStats bool) (*models.Question, error)
	ListAttempts(ctx context.Context, questionID uuid.UUID, userID string, limit int) ([]*models.QuestionAttempt, error)
	AddNote(ctx context.Context, n *models.QuestionNote) error
	DeleteNote(ctx context.Context, questionID, noteID uuid.UUID, userID string) error
	ListNotes(ctx context.Context, questionID uuid.UUID, userID string) ([]models.QuestionNote, error)
}

type QuestionService struct {
	store     questionStore
	ai        AIProvider
	credits   *CreditService
	publisher EventPublisher
	taxonomy  *taxonomy.Taxonomy
}

func NewQuestionService(store questionStore, ai AIProvider, credits *CreditService, publisher EventPublisher, tx *taxonomy.Taxonomy) *QuestionService {
	return &QuestionService{
		store:     store,
		ai:        ai,
		credits:   credits,
		publisher: publisher,
		taxonomy:  tx,
	}
}

type AttemptResult struct {
	Attempt  *models.QuestionAttempt `json:"attempt"`
	Question *models.Question        `json:"question"`
}

func questionNotFound() error {
	return &NotFoundError{Message: "Question not found"}
}

// load fetches a question the user may read: their own or a public one.
func (s *QuestionService) load(ctx context.Context, userID string, id uuid.UUID) (*models.Question, error) {
	q, err := s.store.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, questionNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if q.UserID != userID && !q.IsPublic {
		return nil, &ForbiddenError{Message: "Access denied"}
	}
	return q, nil
}

// loadOwned fetches a question the user may modify.
func (s *QuestionService) loadOwned(ctx context.Context, userID string, id uuid.UUID) (*models.Question, error) {
	q, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, &ForbiddenError{Message: "Only the owner can change this question"}
	}
	return q, nil
}

func (s *QuestionService) Create(ctx context.Context, userID string, req models.CreateQuestionRequest) (*models.Question, error) {
	fields := map[string]string{}
	if !s.taxonomy.Valid(req.Field, req.SubField) {
		fields["sub_field"] = "Unknown field or sub-field"
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" || len(req.Question) > maxQuestionLength {
		fields["question"] = fmt.Sprintf("Question is required and must be at most %d characters", maxQuestionLength)
	}
	if len(req.Answer) > maxAnswerLength {
		fields["answer"] = fmt.Sprintf("Answer must be at most %d characters", maxAnswerLength)
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyIntermediate
	}
	if !models.ValidDifficulty(req.Difficulty) {
		fields["difficulty"] = "Difficulty must be beginner, intermediate or advanced"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.credits.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	q := &models.Question{
		UserID:     userID,
		Field:      req.Field,
		SubField:   req.SubField,
		Question:   req.Question,
		Answer:     strings.TrimSpace(req.Answer),
		Difficulty: req.Difficulty,
		IsPublic:   req.IsPublic,
	}
	if err := s.store.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

func (s *QuestionService) List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error) {
	if f.Difficulty != "" && !models.ValidDifficulty(f.Difficulty) {
		return nil, 0, invalid("difficulty", "Difficulty must be beginner, intermediate or advanced")
	}
	switch f.Visibility {
	case "", "all":
		f.Visibility = ""
	case "public", "private":
	default:
		return nil, 0, invalid("visibility", "Visibility must be public, private or all")
	}

	questions, total, err := s.store.List(ctx, userID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

// Get returns the question with the caller's own notes attached.
func (s *QuestionService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Question, error) {
	q, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	q.Notes = notes
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, userID string, id uuid.UUID, req models.UpdateQuestionRequest) (*models.Question, error) {
	q, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if req.Question != nil {
		text := strings.TrimSpace(*req.Question)
		if text == "" || len(text) > maxQuestionLength {
			fields["question"] = fmt.Sprintf("Question is required and must be at most %d characters", maxQuestionLength)
		}
		q.Question = text
	}
	if req.Answer != nil {
		if len(*req.Answer) > maxAnswerLength {
			fields["answer"] = fmt.Sprintf("Answer must be at most %d characters", maxAnswerLength)
		}
		q.Answer = strings.TrimSpace(*req.Answer)
	}
	if req.Difficulty != nil {
		if !models.ValidDifficulty(*req.Difficulty) {
			fields["difficulty"] = "Difficulty must be beginner, intermediate or advanced"
		}
		q.Difficulty = *req.Difficulty
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.store.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return q, nil
}

func (s *QuestionService) SetVisibility(ctx context.Context, userID string, id uuid.UUID, public bool) (*models.Question, error) {
	q, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetVisibility(ctx, id, public); err != nil {
		return nil, fmt.Errorf("failed to update visibility: %w", err)
	}
	q.IsPublic = public
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// Practice draws up to req.Count random questions from the user's own set
// and tops up from other users' public questions in the same sub-field.
// The result never contains the same question twice.
func (s *QuestionService) Practice(ctx context.Context, userID string, req models.PracticeRequest) ([]*models.Question, error) {
	fields := map[string]string{}
	if !s.taxonomy.Valid(req.Field, req.SubField) {
		fields["sub_field"] = "Unknown field or sub-field"
	}
	if req.Difficulty != "" && !models.ValidDifficulty(req.Difficulty) {
		fields["difficulty"] = "Difficulty must be beginner, intermediate or advanced"
	}
	if req.Count < 1 || req.Count > MaxPracticeCount {
		fields["count"] = fmt.Sprintf("Count must be between 1 and %d", MaxPracticeCount)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	own, err := s.store.SampleOwn(ctx, userID, req, req.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	if len(own) >= req.Count {
		return own[:req.Count], nil
	}

	exclude := make([]uuid.UUID, len(own))
	for i, q := range own {
		exclude[i] = q.ID
	}
	public, err := s.store.SamplePublic(ctx, userID, req, exclude, req.Count-len(own))
	if err != nil {
		return nil, fmt.Errorf("failed to sample public questions: %w", err)
	}

	sample := mergeSample(own, public, req.Count)
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"own":       len(own),
		"requested": req.Count,
		"returned":  len(sample),
	}).Debug("practice sample backfilled")
	return sample, nil
}

// mergeSample appends backfill to primary, skipping ids already present,
// and caps the result at n.
func mergeSample(primary, backfill []*models.Question, n int) []*models.Question {
	seen := make(map[uuid.UUID]struct{}, len(primary)+len(backfill))
	out := make([]*models.Question, 0, n)
	for _, list := range [][]*models.Question{primary, backfill} {
		for _, q := range list {
			if len(out) == n {
				return out
			}
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// SubmitAttempt grades the answer against the stored question and records
// the attempt. Attempts on someone else's public question are kept in the
// caller's history without touching the owner's statistics.
func (s *QuestionService) SubmitAttempt(ctx context.Context, userID string, id uuid.UUID, answer string) (*AttemptResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, invalid("answer", "Answer is required")
	}
	if len(answer) > maxAnswerLength {
		return nil, invalid("answer", fmt.Sprintf("Answer must be at most %d characters", maxAnswerLength))
	}

	q, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	ev, err := s.ai.EvaluateAnswer(ctx, EvaluationInput{
		Question:        q.Question,
		Answer:          answer,
		CanonicalAnswer: q.Answer,
		Field:           q.Field,
		SubField:        q.SubField,
	})
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("question_id", id).Error("attempt evaluation failed")
		return nil, &AIError{Message: "Failed to evaluate answer", Err: err}
	}
	ev = clampEvaluation(ev)

	if _, err := s.credits.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	attempt := &models.QuestionAttempt{
		QuestionID: id,
		UserID:     userID,
		Answer:     answer,
		Score:      ev.Score,
		Feedback:   ev.Feedback,
		Metrics:    ev.Metrics,
	}
	// Only the owner's attempts feed the question's score history.
	updated, err := s.store.RecordAttempt(ctx, attempt, q.UserID == userID)
	if repository.IsNotFound(err) {
		return nil, questionNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	s.publisher.Publish(ctx, userID, models.EventAttemptScored, map[string]interface{}{
		"question_id":   id,
		"attempt_id":    attempt.ID,
		"score":         attempt.Score,
		"average_score": updated.AverageScore,
	})

	return &AttemptResult{Attempt: attempt, Question: updated}, nil
}

func (s *QuestionService) ListAttempts(ctx context.Context, userID string, id uuid.UUID, limit int) ([]*models.QuestionAttempt, error) {
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, id, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *QuestionService) AddNote(ctx context.Context, userID string, id uuid.UUID, content string) (*models.QuestionNote, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxNoteLength {
		return nil, invalid("content", fmt.Sprintf("Note is required and must be at most %d characters", maxNoteLength))
	}
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}
	if _, err := s.credits.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	note := &models.QuestionNote{QuestionID: id, UserID: userID, Content: content}
	if err := s.store.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	return note, nil
}

func (s *QuestionService) DeleteNote(ctx context.Context, userID string, questionID, noteID uuid.UUID) error {
	err := s.store.DeleteNote(ctx, questionID, noteID, userID)
	if repository.IsNotFound(err) {
		return &NotFoundError{Message: "Note not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// Lookup resolves ids to the questions the user may read, in the order of
// ids. Ids that are missing or private to someone else are skipped.
func (s *QuestionService) Lookup(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}
	found, err := s.store.GetAccessible(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}

	out := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// Accessible is Lookup that fails with a validation error when any id
// cannot be resolved.
func (s *QuestionService) Accessible(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error) {
	out, err := s.Lookup(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(out) == len(ids) {
		return out, nil
	}
	got := make(map[uuid.UUID]struct{}, len(out))
	for _, q := range out {
		got[q.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := got[id]; !ok {
			return nil, invalid("question_ids", "Question "+id.String()+" does not exist or is not accessible")
		}
	}
	return out, nil
}
