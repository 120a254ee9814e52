package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
)

type userStore interface {
	GetOrCreate(ctx context.Context, id string, initialCredits int) (*models.User, error)
	Deduct(ctx context.Context, id string, amount int) (int, error)
	Refresh(ctx context.Context, id string, dailyCredits int, cutoff time.Time) (*models.User, bool, error)
}

type CreditPolicy struct {
	InitialCredits  int
	DailyCredits    int
	RefreshInterval time.Duration
}

type CreditService struct {
	users     userStore
	cache     BalanceCache
	locker    Locker
	publisher EventPublisher
	policy    CreditPolicy
	now       func() time.Time
}

func NewCreditService(users userStore, cache BalanceCache, locker Locker, publisher EventPublisher, policy CreditPolicy) *CreditService {
	if policy.RefreshInterval <= 0 {
		policy.RefreshInterval = 24 * time.Hour
	}
	return &CreditService{
		users:     users,
		cache:     cache,
		locker:    locker,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

func (s *CreditService) balanceOf(u *models.User) *models.CreditBalance {
	return &models.CreditBalance{
		Credits:                 u.Credits,
		TotalQuestionsGenerated: u.TotalQuestionsGenerated,
		NextRefreshAt:           u.LastCreditRefreshAt.Add(s.policy.RefreshInterval),
	}
}

// Ensure returns the user, creating it with the initial grant on first use.
func (s *CreditService) Ensure(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetOrCreate(ctx, userID, s.policy.InitialCredits)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// Check returns the balance, applying a due daily refresh first.
func (s *CreditService) Check(ctx context.Context, userID string) (*models.CreditBalance, error) {
	if cached, err := s.cache.Get(ctx, userID); err == nil && cached != nil && s.now().Before(cached.NextRefreshAt) {
		return cached, nil
	}

	u, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.now().Before(u.LastCreditRefreshAt.Add(s.policy.RefreshInterval)) {
		balance, _, err := s.Refresh(ctx, userID)
		return balance, err
	}

	balance := s.balanceOf(u)
	s.cache.Set(ctx, userID, balance)
	return balance, nil
}

// Deduct removes amount credits. It never drives the balance below zero:
// a short balance yields InsufficientCreditsError and nothing changes.
func (s *CreditService) Deduct(ctx context.Context, userID string, amount int) (*models.CreditBalance, error) {
	if amount <= 0 {
		return nil, invalid("amount", "Amount must be a positive integer")
	}

	u, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.users.Deduct(ctx, userID, amount)
	if errors.Is(err, repository.ErrInsufficientCredits) {
		return nil, &InsufficientCreditsError{Required: amount, Available: u.Credits}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deduct credits: %w", err)
	}

	s.Changed(ctx, userID, remaining)

	u.Credits = remaining
	return s.balanceOf(u), nil
}

// Refresh tops the balance up to the daily grant when the refresh interval
// has elapsed. The bool reports whether a refresh was applied.
func (s *CreditService) Refresh(ctx context.Context, userID string) (*models.CreditBalance, bool, error) {
	if _, err := s.Ensure(ctx, userID); err != nil {
		return nil, false, err
	}

	release, ok, err := s.locker.Acquire(ctx, "credit_refresh_lock:"+userID, 10*time.Second)
	if err != nil {
		return nil, false, err
	}
	if ok {
		defer release()
	}

	cutoff := s.now().Add(-s.policy.RefreshInterval)
	var (
		u         *models.User
		refreshed bool
	)
	if ok {
		u, refreshed, err = s.users.Refresh(ctx, userID, s.policy.DailyCredits, cutoff)
	} else {
		// Another request is refreshing right now; report the current state.
		u, err = s.users.GetOrCreate(ctx, userID, s.policy.InitialCredits)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to refresh credits: %w", err)
	}

	if refreshed {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"credits": u.Credits,
		}).Info("daily credits refreshed")
		s.Changed(ctx, userID, u.Credits)
	}

	balance := s.balanceOf(u)
	s.cache.Set(ctx, userID, balance)
	return balance, refreshed, nil
}

// Changed drops the cached balance and tells the user's clients about the
// new one. Callers that move credits outside this service must call it.
func (s *CreditService) Changed(ctx context.Context, userID string, credits int) {
	s.cache.Invalidate(ctx, userID)
	s.publisher.Publish(ctx, userID, models.EventCreditsUpdated, map[string]int{"credits": credits})
}
