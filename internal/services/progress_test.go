package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mockmate-backend/internal/models"
)

func TestNextStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name   string
		last   *time.Time
		streak int
		now    time.Time
		want   int
	}{
		{"first practice", nil, 0, day(10, 9), 1},
		{"same day keeps", ptr(day(10, 1)), 4, day(10, 23), 4},
		{"next day increments", ptr(day(9, 23)), 4, day(10, 0), 5},
		{"gap resets", ptr(day(7, 12)), 4, day(10, 12), 1},
		{"clock behind keeps", ptr(day(11, 12)), 3, day(10, 12), 3},
		{"lost streak restarts", ptr(day(10, 1)), 0, day(10, 2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextStreak(tt.last, tt.streak, tt.now))
		})
	}
}

func TestNextStreak_UsesUTCDays(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2026-03-10 23:30 UTC and 2026-03-11 00:30 UTC, expressed in JST.
	last := time.Date(2026, 3, 11, 8, 30, 0, 0, tokyo)
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, tokyo)

	assert.Equal(t, 3, nextStreak(&last, 2, now))
}

func TestClampElapsed(t *testing.T) {
	assert.Equal(t, int64(0), clampElapsed(-10))
	assert.Equal(t, int64(600), clampElapsed(600))
	assert.Equal(t, int64(43200), clampElapsed(90000))
}

func newProgressService(env *testEnv, now *time.Time) (*ProgressService, *stubProgress) {
	store := newStubProgress()
	svc := NewProgressService(store, env.credits, env.tax)
	svc.now = func() time.Time { return *now }
	return svc, store
}

func TestProgressService_SaveUpsertsOneRow(t *testing.T) {
	env := newTestEnv()
	now := testNow
	svc, store := newProgressService(env, &now)
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	p, err := svc.Save(ctx, "alice", models.SaveProgressRequest{
		Field:          testField,
		SubField:       testSubField,
		QuestionIDs:    ids,
		CurrentIndex:   1,
		Scores:         map[string]float64{ids[0].String(): 7, "not-in-session": 3},
		ElapsedSeconds: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120), p.TotalTimeSeconds)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, map[string]float64{ids[0].String(): 7}, p.Scores)
	assert.False(t, p.Completed)

	now = testNow.Add(24 * time.Hour)
	p, err = svc.Save(ctx, "alice", models.SaveProgressRequest{
		Field:          testField,
		SubField:       testSubField,
		QuestionIDs:    ids,
		CurrentIndex:   2,
		ElapsedSeconds: 100000,
	})
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
	assert.Equal(t, int64(120+43200), p.TotalTimeSeconds)
	assert.Equal(t, 2, p.Streak)
	assert.Equal(t, 2, p.BestStreak)
	assert.True(t, p.Completed)

	now = testNow.Add(5 * 24 * time.Hour)
	p, err = svc.Save(ctx, "alice", models.SaveProgressRequest{
		Field:       testField,
		SubField:    testSubField,
		QuestionIDs: ids,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, 2, p.BestStreak)

	loaded, err := svc.Load(ctx, "alice", testField, testSubField)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
}

func TestProgressService_SaveValidation(t *testing.T) {
	env := newTestEnv()
	now := testNow
	svc, _ := newProgressService(env, &now)
	id := uuid.New()

	cases := map[string]models.SaveProgressRequest{
		"sub_field":     {Field: testField, SubField: "Underwater Basket Weaving"},
		"question_ids":  {Field: testField, SubField: testSubField, QuestionIDs: []uuid.UUID{id, id}},
		"current_index": {Field: testField, SubField: testSubField, QuestionIDs: []uuid.UUID{id}, CurrentIndex: 2},
	}
	for field, req := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := svc.Save(context.Background(), "alice", req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, field)
		})
	}
}

func TestProgressService_LoadMissing(t *testing.T) {
	env := newTestEnv()
	now := testNow
	svc, _ := newProgressService(env, &now)

	_, err := svc.Load(context.Background(), "alice", testField, testSubField)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestProgressService_DeleteIsOwnerScoped(t *testing.T) {
	env := newTestEnv()
	now := testNow
	svc, store := newProgressService(env, &now)
	ctx := context.Background()

	p, err := svc.Save(ctx, "alice", models.SaveProgressRequest{Field: testField, SubField: testSubField})
	require.NoError(t, err)

	var notFound *NotFoundError
	assert.ErrorAs(t, svc.Delete(ctx, "bob", p.ID), &notFound)
	require.NoError(t, svc.Delete(ctx, "alice", p.ID))
	assert.Empty(t, store.rows)
}
