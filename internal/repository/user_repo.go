package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mockmate-backend/internal/models"
)

const userColumns = `id, credits, total_questions_generated, last_credit_refresh_at, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Credits, &u.TotalQuestionsGenerated, &u.LastCreditRefreshAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetOrCreate returns the user row, inserting it with initialCredits when it
// does not exist yet.
func (r *UserRepo) GetOrCreate(ctx context.Context, id string, initialCredits int) (*models.User, error) {
	query := `
		INSERT INTO users (id, credits)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, initialCredits))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// Deduct subtracts amount only when the balance covers it and returns the
// new balance.
func (r *UserRepo) Deduct(ctx context.Context, id string, amount int) (int, error) {
	return deductCredits(ctx, r.pool, id, amount)
}

func deductCredits(ctx context.Context, db DBTX, id string, amount int) (int, error) {
	var remaining int
	err := db.QueryRow(ctx, `
		UPDATE users
		SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`, id, amount).Scan(&remaining)
	if IsNotFound(err) {
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Refresh tops the balance up to dailyCredits if the last refresh happened
// at or before cutoff. The second return value is false when the refresh
// was not due; the current row is returned in that case.
func (r *UserRepo) Refresh(ctx context.Context, id string, dailyCredits int, cutoff time.Time) (*models.User, bool, error) {
	query := `
		UPDATE users
		SET credits = GREATEST(credits, $2),
			last_credit_refresh_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND last_credit_refresh_at <= $3
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, id, dailyCredits, cutoff))
	if err == nil {
		return u, true, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	u, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}
