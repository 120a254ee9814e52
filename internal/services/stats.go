package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mockmate-backend/internal/models"
)

type statsStore interface {
	QuestionCounts(ctx context.Context, userID string) (total, public int, err error)
	AttemptSummary(ctx context.Context, userID string) (count int, avg float64, err error)
	FieldBreakdown(ctx context.Context, userID string) ([]models.FieldStats, error)
	SessionSummary(ctx context.Context, userID string) (active, bestStreak int, err error)
}

type StatsService struct {
	store statsStore
}

func NewStatsService(store statsStore) *StatsService {
	return &StatsService{store: store}
}

// Dashboard runs the aggregate queries concurrently and fails if any of
// them fails.
func (s *StatsService) Dashboard(ctx context.Context, userID string) (*models.DashboardStats, error) {
	var out models.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		out.TotalQuestions, out.PublicQuestions, err = s.store.QuestionCounts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalAttempts, out.AverageScore, err = s.store.AttemptSummary(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.Fields, err = s.store.FieldBreakdown(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		out.ActiveSessions, out.BestStreak, err = s.store.SessionSummary(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if out.Fields == nil {
		out.Fields = []models.FieldStats{}
	}
	return &out, nil
}
