package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mockmate-backend/internal/models"
)

// StatsRepo runs the read-only aggregate queries behind the dashboard.
type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) QuestionCounts(ctx context.Context, userID string) (total, public int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_public)
		FROM questions
		WHERE user_id = $1
	`, userID).Scan(&total, &public)
	return total, public, err
}

func (r *StatsRepo) AttemptSummary(ctx context.Context, userID string) (count int, avg float64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0)
		FROM question_attempts
		WHERE user_id = $1
	`, userID).Scan(&count, &avg)
	return count, avg, err
}

func (r *StatsRepo) FieldBreakdown(ctx context.Context, userID string) ([]models.FieldStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.field, q.sub_field, COUNT(DISTINCT q.id), COUNT(a.id), COALESCE(AVG(a.score), 0)
		FROM questions q
		LEFT JOIN question_attempts a ON a.question_id = q.id AND a.user_id = $1
		WHERE q.user_id = $1
		GROUP BY q.field, q.sub_field
		ORDER BY q.field, q.sub_field
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.FieldStats{}
	for rows.Next() {
		var fs models.FieldStats
		if err := rows.Scan(&fs.Field, &fs.SubField, &fs.Questions, &fs.Attempts, &fs.AverageScore); err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// SessionSummary counts unfinished groups plus unfinished progress rows and
// returns the best streak across all progress rows.
func (r *StatsRepo) SessionSummary(ctx context.Context, userID string) (active, bestStreak int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM question_groups WHERE user_id = $1 AND NOT completed)
			+ (SELECT COUNT(*) FROM practice_progress WHERE user_id = $1 AND NOT completed),
			COALESCE((SELECT MAX(best_streak) FROM practice_progress WHERE user_id = $1), 0)
	`, userID).Scan(&active, &bestStreak)
	return active, bestStreak, err
}
