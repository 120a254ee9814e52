package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mockmate-backend/internal/models"
)

const progressColumns = `id, user_id, field, sub_field, question_ids, current_index, scores, completed,
	total_time_seconds, streak, best_streak, last_practiced_at, created_at, updated_at`

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

func scanProgress(row interface{ Scan(...any) error }) (*models.PracticeProgress, error) {
	p := &models.PracticeProgress{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Field, &p.SubField,
		&p.QuestionIDs, &p.CurrentIndex, &p.Scores, &p.Completed,
		&p.TotalTimeSeconds, &p.Streak, &p.BestStreak, &p.LastPracticedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Normalize()
	return p, nil
}

func (r *ProgressRepo) Get(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error) {
	return scanProgress(r.pool.QueryRow(ctx,
		"SELECT "+progressColumns+" FROM practice_progress WHERE user_id = $1 AND field = $2 AND sub_field = $3",
		userID, field, subField,
	))
}

func (r *ProgressRepo) ListByUser(ctx context.Context, userID string) ([]*models.PracticeProgress, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+progressColumns+" FROM practice_progress WHERE user_id = $1 ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.PracticeProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Upsert writes the row for (user, field, sub_field). TotalTimeSeconds on p
// is the elapsed time of this save; it is added to any stored total and p
// is refreshed from the stored row.
func (r *ProgressRepo) Upsert(ctx context.Context, p *models.PracticeProgress) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO practice_progress (
			id, user_id, field, sub_field, question_ids, current_index, scores, completed,
			total_time_seconds, streak, best_streak, last_practiced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, field, sub_field) DO UPDATE SET
			question_ids = EXCLUDED.question_ids,
			current_index = EXCLUDED.current_index,
			scores = EXCLUDED.scores,
			completed = EXCLUDED.completed,
			total_time_seconds = practice_progress.total_time_seconds + EXCLUDED.total_time_seconds,
			streak = EXCLUDED.streak,
			best_streak = GREATEST(practice_progress.best_streak, EXCLUDED.best_streak),
			last_practiced_at = EXCLUDED.last_practiced_at,
			updated_at = NOW()
		RETURNING `+progressColumns,
		uuid.New(), p.UserID, p.Field, p.SubField, p.QuestionIDs, p.CurrentIndex, p.Scores, p.Completed,
		p.TotalTimeSeconds, p.Streak, p.BestStreak, p.LastPracticedAt,
	)

	saved, err := scanProgress(row)
	if err != nil {
		return err
	}
	*p = *saved
	return nil
}

func (r *ProgressRepo) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM practice_progress WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
