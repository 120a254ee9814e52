package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/taxonomy"
)

const (
	maxGroupQuestions = 100
	maxGroupNameLen   = 120
)

type groupStore interface {
	Create(ctx context.Context, g *models.QuestionGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionGroup, error)
	ListByUser(ctx context.Context, userID string) ([]*models.QuestionGroup, error)
	SaveState(ctx context.Context, g *models.QuestionGroup) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type questionPicker interface {
	Practice(ctx context.Context, userID string, req models.PracticeRequest) ([]*models.Question, error)
	Accessible(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error)
	Lookup(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error)
}

type GroupService struct {
	store     groupStore
	questions questionPicker
	credits   *CreditService
	taxonomy  *taxonomy.Taxonomy
}

func NewGroupService(store groupStore, questions questionPicker, credits *CreditService, tx *taxonomy.Taxonomy) *GroupService {
	return &GroupService{store: store, questions: questions, credits: credits, taxonomy: tx}
}

// GroupDetail is a group with its questions in session order.
type GroupDetail struct {
	*models.QuestionGroup
	Questions []*models.Question `json:"questions"`
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *GroupService) Create(ctx context.Context, userID string, req models.CreateGroupRequest) (*GroupDetail, error) {
	fields := map[string]string{}
	if !s.taxonomy.Valid(req.Field, req.SubField) {
		fields["sub_field"] = "Unknown field or sub-field"
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = req.SubField + " practice"
	}
	if len(req.Name) > maxGroupNameLen {
		fields["name"] = fmt.Sprintf("Name must be at most %d characters", maxGroupNameLen)
	}
	ids := dedupeIDs(req.QuestionIDs)
	if len(ids) == 0 && req.Count <= 0 {
		fields["question_ids"] = "Provide question_ids or a positive count"
	}
	if len(ids) > maxGroupQuestions {
		fields["question_ids"] = fmt.Sprintf("A group holds at most %d questions", maxGroupQuestions)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var (
		questions []*models.Question
		err       error
	)
	if len(ids) > 0 {
		questions, err = s.questions.Accessible(ctx, userID, ids)
	} else {
		questions, err = s.questions.Practice(ctx, userID, models.PracticeRequest{
			Field:      req.Field,
			SubField:   req.SubField,
			Difficulty: req.Difficulty,
			Count:      req.Count,
		})
	}
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, invalid("count", "No questions available for this sub-field yet")
	}

	if _, err := s.credits.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	qids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		qids[i] = q.ID
	}
	g := &models.QuestionGroup{
		UserID:       userID,
		Name:         req.Name,
		Field:        req.Field,
		SubField:     req.SubField,
		SessionState: models.NewSessionState(qids),
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return &GroupDetail{QuestionGroup: g, Questions: questions}, nil
}

func (s *GroupService) List(ctx context.Context, userID string) ([]*models.QuestionGroup, error) {
	groups, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *GroupService) loadOwned(ctx context.Context, userID string, id uuid.UUID) (*models.QuestionGroup, error) {
	g, err := s.store.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, &NotFoundError{Message: "Group not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if g.UserID != userID {
		return nil, &ForbiddenError{Message: "Access denied"}
	}
	return g, nil
}

// Get returns the group with its questions. Questions deleted since the
// group was created are left out of the list but keep their slot in
// question_ids so the saved index stays meaningful.
func (s *GroupService) Get(ctx context.Context, userID string, id uuid.UUID) (*GroupDetail, error) {
	g, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.Lookup(ctx, userID, g.QuestionIDs)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{QuestionGroup: g, Questions: questions}, nil
}

func (s *GroupService) UpdateProgress(ctx context.Context, userID string, id uuid.UUID, req models.UpdateGroupProgressRequest) (*models.QuestionGroup, error) {
	g, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Score != nil && req.QuestionID == nil {
		return nil, invalid("question_id", "question_id is required with score")
	}
	if req.QuestionID != nil && req.Score != nil {
		if err := g.RecordScore(*req.QuestionID, *req.Score); err != nil {
			return nil, invalid("question_id", err.Error())
		}
	}
	if err := g.SetIndex(req.CurrentIndex); err != nil {
		return nil, invalid("current_index", fmt.Sprintf("current_index must be between 0 and %d", len(g.QuestionIDs)))
	}

	if err := s.store.SaveState(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save group progress: %w", err)
	}
	return g, nil
}

func (s *GroupService) Rename(ctx context.Context, userID string, id uuid.UUID, name string) (*models.QuestionGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxGroupNameLen {
		return nil, invalid("name", fmt.Sprintf("Name is required and must be at most %d characters", maxGroupNameLen))
	}
	g, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rename(ctx, id, name); err != nil {
		return nil, fmt.Errorf("failed to rename group: %w", err)
	}
	g.Name = name
	return g, nil
}

func (s *GroupService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}
