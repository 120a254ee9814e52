package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mockmate-backend/internal/models"
)

const groupColumns = `id, user_id, name, field, sub_field, question_ids, current_index, scores, completed, created_at, updated_at`

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func scanGroup(row interface{ Scan(...any) error }) (*models.QuestionGroup, error) {
	g := &models.QuestionGroup{}
	err := row.Scan(
		&g.ID, &g.UserID, &g.Name, &g.Field, &g.SubField,
		&g.QuestionIDs, &g.CurrentIndex, &g.Scores, &g.Completed,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Normalize()
	return g, nil
}

func (r *GroupRepo) Create(ctx context.Context, g *models.QuestionGroup) error {
	g.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO question_groups (id, user_id, name, field, sub_field, question_ids, current_index, scores, completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, g.ID, g.UserID, g.Name, g.Field, g.SubField, g.QuestionIDs, g.CurrentIndex, g.Scores, g.Completed,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionGroup, error) {
	return scanGroup(r.pool.QueryRow(ctx, "SELECT "+groupColumns+" FROM question_groups WHERE id = $1", id))
}

func (r *GroupRepo) ListByUser(ctx context.Context, userID string) ([]*models.QuestionGroup, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+groupColumns+" FROM question_groups WHERE user_id = $1 ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*models.QuestionGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// SaveState persists the session part of the group.
func (r *GroupRepo) SaveState(ctx context.Context, g *models.QuestionGroup) error {
	return r.pool.QueryRow(ctx, `
		UPDATE question_groups
		SET current_index = $1, scores = $2, completed = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, g.CurrentIndex, g.Scores, g.Completed, g.ID).Scan(&g.UpdatedAt)
}

func (r *GroupRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE question_groups SET name = $1, updated_at = NOW() WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *GroupRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM question_groups WHERE id = $1", id)
	return err
}
