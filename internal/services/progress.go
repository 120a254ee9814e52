package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/taxonomy"
)

// maxElapsedSeconds is the most time a single save may add (12h).
const maxElapsedSeconds = 43200

type progressStore interface {
	Get(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PracticeProgress, error)
	Upsert(ctx context.Context, p *models.PracticeProgress) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type ProgressService struct {
	store    progressStore
	credits  *CreditService
	taxonomy *taxonomy.Taxonomy
	now      func() time.Time
}

func NewProgressService(store progressStore, credits *CreditService, tx *taxonomy.Taxonomy) *ProgressService {
	return &ProgressService{store: store, credits: credits, taxonomy: tx, now: time.Now}
}

func clampElapsed(s int64) int64 {
	if s < 0 {
		return 0
	}
	if s > maxElapsedSeconds {
		return maxElapsedSeconds
	}
	return s
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nextStreak returns the day streak after practising at now.
func nextStreak(last *time.Time, streak int, now time.Time) int {
	if last == nil || streak <= 0 {
		return 1
	}
	days := int(utcDay(now).Sub(utcDay(*last)).Hours() / 24)
	switch {
	case days < 0:
		// Clock skew; keep what we have.
		return streak
	case days == 0:
		return streak
	case days == 1:
		return streak + 1
	default:
		return 1
	}
}

// Save upserts the user's progress for one field/sub-field.
func (s *ProgressService) Save(ctx context.Context, userID string, req models.SaveProgressRequest) (*models.PracticeProgress, error) {
	if !s.taxonomy.Valid(req.Field, req.SubField) {
		return nil, invalid("sub_field", "Unknown field or sub-field")
	}
	ids := dedupeIDs(req.QuestionIDs)
	if len(ids) != len(req.QuestionIDs) {
		return nil, invalid("question_ids", "question_ids must not contain duplicates")
	}
	if req.CurrentIndex < 0 || req.CurrentIndex > len(ids) {
		return nil, invalid("current_index", fmt.Sprintf("current_index must be between 0 and %d", len(ids)))
	}

	if _, err := s.credits.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, userID, req.Field, req.SubField)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	now := s.now().UTC()
	var (
		lastPracticed *time.Time
		streak, best  int
	)
	if existing != nil {
		lastPracticed = existing.LastPracticedAt
		streak = existing.Streak
		best = existing.BestStreak
	}
	streak = nextStreak(lastPracticed, streak, now)
	if streak > best {
		best = streak
	}

	state := models.SessionState{
		QuestionIDs:  ids,
		CurrentIndex: req.CurrentIndex,
		Scores:       req.Scores,
	}
	state.Normalize()

	p := &models.PracticeProgress{
		UserID:           userID,
		Field:            req.Field,
		SubField:         req.SubField,
		SessionState:     state,
		TotalTimeSeconds: clampElapsed(req.ElapsedSeconds),
		Streak:           streak,
		BestStreak:       best,
		LastPracticedAt:  &now,
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"field":     p.Field,
		"sub_field": p.SubField,
		"streak":    p.Streak,
		"completed": p.Completed,
	}).Debug("progress saved")

	return p, nil
}

func (s *ProgressService) Load(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error) {
	if field == "" || subField == "" {
		return nil, &ValidationError{Fields: map[string]string{
			"field":     "field and sub_field are required",
			"sub_field": "field and sub_field are required",
		}}
	}
	p, err := s.store.Get(ctx, userID, field, subField)
	if repository.IsNotFound(err) {
		return nil, &NotFoundError{Message: "No progress saved for this sub-field"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return p, nil
}

func (s *ProgressService) List(ctx context.Context, userID string) ([]*models.PracticeProgress, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return list, nil
}

func (s *ProgressService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	err := s.store.Delete(ctx, id, userID)
	if repository.IsNotFound(err) {
		return &NotFoundError{Message: "Progress not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}
