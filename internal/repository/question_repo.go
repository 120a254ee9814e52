package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mockmate-backend/internal/models"
)

var questionColumns = []string{
	"id", "user_id", "field", "sub_field", "question", "answer", "difficulty", "is_public",
	"scores", "average_score", "times_answered", "created_at", "last_reviewed_at",
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func scanQuestion(row interface{ Scan(...any) error }) (*models.Question, error) {
	q := &models.Question{}
	err := row.Scan(
		&q.ID, &q.UserID, &q.Field, &q.SubField, &q.Question, &q.Answer, &q.Difficulty, &q.IsPublic,
		&q.Scores, &q.AverageScore, &q.TimesAnswered, &q.CreatedAt, &q.LastReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	if q.Scores == nil {
		q.Scores = []float64{}
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]*models.Question, error) {
	defer rows.Close()

	questions := []*models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

const insertQuestionSQL = `
	INSERT INTO questions (id, user_id, field, sub_field, question, answer, difficulty, is_public)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at`

func (r *QuestionRepo) Create(ctx context.Context, q *models.Question) error {
	q.ID = uuid.New()
	q.Scores = []float64{}
	return r.pool.QueryRow(ctx, insertQuestionSQL,
		q.ID, q.UserID, q.Field, q.SubField, q.Question, q.Answer, q.Difficulty, q.IsPublic,
	).Scan(&q.CreatedAt)
}

// CreateCharged stores generated questions and charges one credit per
// question in a single transaction. It returns the remaining balance, or
// ErrInsufficientCredits without storing anything.
func (r *QuestionRepo) CreateCharged(ctx context.Context, userID string, questions []*models.Question) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	remaining, err := deductCredits(ctx, tx, userID, len(questions))
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		q.ID = uuid.New()
		q.UserID = userID
		q.Scores = []float64{}
		batch.Queue(insertQuestionSQL,
			q.ID, q.UserID, q.Field, q.SubField, q.Question, q.Answer, q.Difficulty, q.IsPublic,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, q := range questions {
		if err := results.QueryRow().Scan(&q.CreatedAt); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert question: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE users SET total_questions_generated = total_questions_generated + $2, updated_at = NOW() WHERE id = $1",
		userID, len(questions),
	); err != nil {
		return 0, fmt.Errorf("failed to update generation counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit generated questions: %w", err)
	}
	return remaining, nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	// uuid.UUID is an array type, which squirrel.Eq would expand into IN (...).
	query, args, err := psql.Select(questionColumns...).From("questions").Where("id = ?", id).ToSql()
	if err != nil {
		return nil, err
	}
	return scanQuestion(r.pool.QueryRow(ctx, query, args...))
}

// GetAccessible returns the questions among ids that userID owns or that
// are public, in no particular order.
func (r *QuestionRepo) GetAccessible(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error) {
	query, args, err := psql.Select(questionColumns...).From("questions").
		Where(squirrel.Expr("id = ANY(?)", ids)).
		Where(squirrel.Or{squirrel.Eq{"user_id": userID}, squirrel.Eq{"is_public": true}}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern. Postgres uses
// backslash as the default escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildListQuery returns the page query and the matching count query.
// visibility=public browses every user's public questions; otherwise the
// listing is limited to the caller's own.
func buildListQuery(userID string, f models.QuestionFilter) (squirrel.SelectBuilder, squirrel.SelectBuilder) {
	var where squirrel.And
	switch f.Visibility {
	case "public":
		where = squirrel.And{squirrel.Eq{"is_public": true}}
	case "private":
		where = squirrel.And{squirrel.Eq{"user_id": userID}, squirrel.Eq{"is_public": false}}
	default:
		where = squirrel.And{squirrel.Eq{"user_id": userID}}
	}
	if f.Field != "" {
		where = append(where, squirrel.Eq{"field": f.Field})
	}
	if f.SubField != "" {
		where = append(where, squirrel.Eq{"sub_field": f.SubField})
	}
	if f.Difficulty != "" {
		where = append(where, squirrel.Eq{"difficulty": f.Difficulty})
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"question": pattern},
			squirrel.ILike{"answer": pattern},
		})
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	page := psql.Select(questionColumns...).From("questions").Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset))
	count := psql.Select("COUNT(*)").From("questions").Where(where)
	return page, count
}

func (r *QuestionRepo) List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error) {
	page, count := buildListQuery(userID, f)

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs, err := page.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// buildSampleQuery selects n random questions for a field/sub-field. With
// public set it draws from other users' public questions, skipping exclude.
func buildSampleQuery(userID string, req models.PracticeRequest, public bool, exclude []uuid.UUID, n int) squirrel.SelectBuilder {
	q := psql.Select(questionColumns...).From("questions").
		Where(squirrel.Eq{"field": req.Field, "sub_field": req.SubField})
	if req.Difficulty != "" {
		q = q.Where(squirrel.Eq{"difficulty": req.Difficulty})
	}
	if public {
		q = q.Where(squirrel.Eq{"is_public": true}).Where(squirrel.NotEq{"user_id": userID})
		if len(exclude) > 0 {
			q = q.Where(squirrel.Expr("NOT (id = ANY(?))", exclude))
		}
	} else {
		q = q.Where(squirrel.Eq{"user_id": userID})
	}
	return q.OrderBy("random()").Limit(uint64(n))
}

func (r *QuestionRepo) SampleOwn(ctx context.Context, userID string, req models.PracticeRequest, n int) ([]*models.Question, error) {
	return r.sample(ctx, buildSampleQuery(userID, req, false, nil, n))
}

func (r *QuestionRepo) SamplePublic(ctx context.Context, userID string, req models.PracticeRequest, exclude []uuid.UUID, n int) ([]*models.Question, error) {
	return r.sample(ctx, buildSampleQuery(userID, req, true, exclude, n))
}

func (r *QuestionRepo) sample(ctx context.Context, b squirrel.SelectBuilder) ([]*models.Question, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func (r *QuestionRepo) Update(ctx context.Context, q *models.Question) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE questions SET question = $1, answer = $2, difficulty = $3 WHERE id = $4",
		q.Question, q.Answer, q.Difficulty, q.ID,
	)
	return err
}

func (r *QuestionRepo) SetVisibility(ctx context.Context, id uuid.UUID, public bool) error {
	_, err := r.pool.Exec(ctx, "UPDATE questions SET is_public = $1 WHERE id = $2", public, id)
	return err
}

func (r *QuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
	return err
}

// RecordAttempt stores a scored attempt. With countStats the score is also
// folded into the question's running statistics. The current question is
// returned either way.
func (r *QuestionRepo) RecordAttempt(ctx context.Context, a *models.QuestionAttempt, countStats bool) (*models.Question, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	a.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO question_attempts (id, question_id, user_id, answer, score, feedback, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.QuestionID, a.UserID, a.Answer, a.Score, a.Feedback, a.Metrics).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert attempt: %w", err)
	}

	if !countStats {
		query, args, err := psql.Select(questionColumns...).From("questions").Where("id = ?", a.QuestionID).ToSql()
		if err != nil {
			return nil, err
		}
		q, err := scanQuestion(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit attempt: %w", err)
		}
		return q, nil
	}

	q, err := scanQuestion(tx.QueryRow(ctx, `
		UPDATE questions
		SET scores = array_append(scores, $2::float8),
			average_score = (average_score * times_answered + $2::float8) / (times_answered + 1),
			times_answered = times_answered + 1,
			last_reviewed_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, field, sub_field, question, answer, difficulty, is_public,
			scores, average_score, times_answered, created_at, last_reviewed_at
	`, a.QuestionID, a.Score))
	if err != nil {
		return nil, fmt.Errorf("failed to update question stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit attempt: %w", err)
	}
	return q, nil
}

func (r *QuestionRepo) ListAttempts(ctx context.Context, questionID uuid.UUID, userID string, limit int) ([]*models.QuestionAttempt, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_id, user_id, answer, score, feedback, metrics, created_at
		FROM question_attempts
		WHERE question_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, questionID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []*models.QuestionAttempt{}
	for rows.Next() {
		a := &models.QuestionAttempt{}
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Answer, &a.Score, &a.Feedback, &a.Metrics, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *QuestionRepo) AddNote(ctx context.Context, n *models.QuestionNote) error {
	n.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO question_notes (id, question_id, user_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, n.ID, n.QuestionID, n.UserID, n.Content).Scan(&n.CreatedAt)
}

// DeleteNote removes a note the user wrote on the question. A miss is
// reported as pgx.ErrNoRows.
func (r *QuestionRepo) DeleteNote(ctx context.Context, questionID, noteID uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM question_notes WHERE id = $1 AND question_id = $2 AND user_id = $3",
		noteID, questionID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *QuestionRepo) ListNotes(ctx context.Context, questionID uuid.UUID, userID string) ([]models.QuestionNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_id, user_id, content, created_at
		FROM question_notes
		WHERE question_id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`, questionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.QuestionNote{}
	for rows.Next() {
		var n models.QuestionNote
		if err := rows.Scan(&n.ID, &n.QuestionID, &n.UserID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
