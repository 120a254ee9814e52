package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mockmate-backend/internal/models"
	"mockmate-backend/internal/repository"
	"mockmate-backend/internal/taxonomy"
)

const (
	testField    = "Software Engineering"
	testSubField = "Backend Development"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// --- users ---

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	now   time.Time
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: map[string]*models.User{}, now: testNow}
}

func (s *stubUsers) GetOrCreate(ctx context.Context, id string, initial int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = &models.User{ID: id, Credits: initial, LastCreditRefreshAt: s.now, CreatedAt: s.now}
		s.users[id] = u
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) Deduct(ctx context.Context, id string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if u.Credits < amount {
		return 0, repository.ErrInsufficientCredits
	}
	u.Credits -= amount
	return u.Credits, nil
}

func (s *stubUsers) Refresh(ctx context.Context, id string, daily int, cutoff time.Time) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u.LastCreditRefreshAt.After(cutoff) {
		cp := *u
		return &cp, false, nil
	}
	if u.Credits < daily {
		u.Credits = daily
	}
	u.LastCreditRefreshAt = s.now
	cp := *u
	return &cp, true, nil
}

// --- redis-backed collaborators ---

type memCache struct {
	mu       sync.Mutex
	balances map[string]*models.CreditBalance
}

func newMemCache() *memCache {
	return &memCache{balances: map[string]*models.CreditBalance{}}
}

func (c *memCache) Get(ctx context.Context, userID string) (*models.CreditBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[userID], nil
}

func (c *memCache) Set(ctx context.Context, userID string, b *models.CreditBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *b
	c.balances[userID] = &cp
}

func (c *memCache) Invalidate(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, userID)
}

type stubLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: map[string]bool{}}
}

func (l *stubLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type publishedEvent struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, userID, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- AI ---

type stubAI struct {
	generated     []models.GeneratedQuestion
	generateErr   error
	evaluation    *models.Evaluation
	evaluateErr   error
	transcript    string
	transcribeErr error

	lastEval EvaluationInput
}

func (a *stubAI) GenerateQuestions(ctx context.Context, req models.GenerateQuestionsRequest) ([]models.GeneratedQuestion, error) {
	return a.generated, a.generateErr
}

func (a *stubAI) EvaluateAnswer(ctx context.Context, in EvaluationInput) (*models.Evaluation, error) {
	a.lastEval = in
	if a.evaluateErr != nil {
		return nil, a.evaluateErr
	}
	ev := *a.evaluation
	return &ev, nil
}

func (a *stubAI) Transcribe(ctx context.Context, path, mimeType string) (string, error) {
	return a.transcript, a.transcribeErr
}

// --- questions ---

type stubQuestions struct {
	mu        sync.Mutex
	users     *stubUsers
	questions map[uuid.UUID]*models.Question
	attempts  []*models.QuestionAttempt
	notes     []models.QuestionNote
	order     []uuid.UUID
}

func newStubQuestions(users *stubUsers) *stubQuestions {
	return &stubQuestions{users: users, questions: map[uuid.UUID]*models.Question{}}
}

func (s *stubQuestions) put(q *models.Question) *models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Scores == nil {
		q.Scores = []float64{}
	}
	s.questions[q.ID] = q
	s.order = append(s.order, q.ID)
	return q
}

func (s *stubQuestions) Create(ctx context.Context, q *models.Question) error {
	s.put(q)
	return nil
}

func (s *stubQuestions) CreateCharged(ctx context.Context, userID string, questions []*models.Question) (int, error) {
	remaining, err := s.users.Deduct(ctx, userID, len(questions))
	if err != nil {
		return 0, err
	}
	for _, q := range questions {
		q.UserID = userID
		s.put(q)
	}
	return remaining, nil
}

func (s *stubQuestions) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (s *stubQuestions) GetAccessible(ctx context.Context, userID string, ids []uuid.UUID) ([]*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok && (q.UserID == userID || q.IsPublic) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubQuestions) List(ctx context.Context, userID string, f models.QuestionFilter) ([]*models.Question, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Question
	for _, id := range s.order {
		q, ok := s.questions[id]
		if !ok {
			continue
		}
		switch {
		case f.Visibility == "public" && q.IsPublic,
			f.Visibility == "private" && q.UserID == userID && !q.IsPublic,
			f.Visibility == "" && q.UserID == userID:
			out = append(out, q)
		}
	}
	return out, len(out), nil
}

func (s *stubQuestions) sample(userID string, req models.PracticeRequest, own bool, exclude []uuid.UUID, n int) []*models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := map[uuid.UUID]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	var out []*models.Question
	for _, id := range s.order {
		q, ok := s.questions[id]
		if !ok {
			continue
		}
		if len(out) == n {
			break
		}
		if skip[q.ID] || q.Field != req.Field || q.SubField != req.SubField {
			continue
		}
		if own && q.UserID != userID {
			continue
		}
		if !own && (q.UserID == userID || !q.IsPublic) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (s *stubQuestions) SampleOwn(ctx context.Context, userID string, req models.PracticeRequest, n int) ([]*models.Question, error) {
	return s.sample(userID, req, true, nil, n), nil
}

func (s *stubQuestions) SamplePublic(ctx context.Context, userID string, req models.PracticeRequest, exclude []uuid.UUID, n int) ([]*models.Question, error) {
	return s.sample(userID, req, false, exclude, n), nil
}

func (s *stubQuestions) Update(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.questions[q.ID] = &cp
	return nil
}

func (s *stubQuestions) SetVisibility(ctx context.Context, id uuid.UUID, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[id].IsPublic = public
	return nil
}

func (s *stubQuestions) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, id)
	return nil
}

func (s *stubQuestions) RecordAttempt(ctx context.Context, a *models.QuestionAttempt, countStats bool) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[a.QuestionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	a.ID = uuid.New()
	a.CreatedAt = testNow
	s.attempts = append(s.attempts, a)
	if !countStats {
		cp := *q
		return &cp, nil
	}

	q.Scores = append(q.Scores, a.Score)
	q.TimesAnswered++
	var sum float64
	for _, sc := range q.Scores {
		sum += sc
	}
	q.AverageScore = sum / float64(len(q.Scores))
	cp := *q
	return &cp, nil
}

func (s *stubQuestions) ListAttempts(ctx context.Context, questionID uuid.UUID, userID string, limit int) ([]*models.QuestionAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.QuestionAttempt{}
	for _, a := range s.attempts {
		if a.QuestionID == questionID && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubQuestions) AddNote(ctx context.Context, n *models.QuestionNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uuid.New()
	s.notes = append(s.notes, *n)
	return nil
}

func (s *stubQuestions) DeleteNote(ctx context.Context, questionID, noteID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notes {
		if n.ID == noteID && n.QuestionID == questionID && n.UserID == userID {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *stubQuestions) ListNotes(ctx context.Context, questionID uuid.UUID, userID string) ([]models.QuestionNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.QuestionNote{}
	for _, n := range s.notes {
		if n.QuestionID == questionID && n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

// --- groups ---

type stubGroups struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*models.QuestionGroup
}

func newStubGroups() *stubGroups {
	return &stubGroups{groups: map[uuid.UUID]*models.QuestionGroup{}}
}

func (s *stubGroups) Create(ctx context.Context, g *models.QuestionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.New()
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *stubGroups) GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (s *stubGroups) ListByUser(ctx context.Context, userID string) ([]*models.QuestionGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.QuestionGroup{}
	for _, g := range s.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubGroups) SaveState(ctx context.Context, g *models.QuestionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *stubGroups) Rename(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[id].Name = name
	return nil
}

func (s *stubGroups) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, id)
	return nil
}

// --- progress ---

type progressKey struct{ user, field, sub string }

type stubProgress struct {
	mu   sync.Mutex
	rows map[progressKey]*models.PracticeProgress
}

func newStubProgress() *stubProgress {
	return &stubProgress{rows: map[progressKey]*models.PracticeProgress{}}
}

func (s *stubProgress) Get(ctx context.Context, userID, field, subField string) (*models.PracticeProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[progressKey{userID, field, subField}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s *stubProgress) ListByUser(ctx context.Context, userID string) ([]*models.PracticeProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.PracticeProgress{}
	for k, p := range s.rows {
		if k.user == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Upsert mirrors the SQL: time accumulates and best_streak never drops.
func (s *stubProgress) Upsert(ctx context.Context, p *models.PracticeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := progressKey{p.UserID, p.Field, p.SubField}
	if prev, ok := s.rows[k]; ok {
		p.ID = prev.ID
		p.TotalTimeSeconds += prev.TotalTimeSeconds
		if prev.BestStreak > p.BestStreak {
			p.BestStreak = prev.BestStreak
		}
	} else {
		p.ID = uuid.New()
	}
	cp := *p
	s.rows[k] = &cp
	return nil
}

func (s *stubProgress) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.rows {
		if p.ID == id && k.user == userID {
			delete(s.rows, k)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// --- wiring ---

type testEnv struct {
	users     *stubUsers
	cache     *memCache
	locker    *stubLocker
	publisher *recordingPublisher
	ai        *stubAI
	questions *stubQuestions
	credits   *CreditService
	tax       *taxonomy.Taxonomy
}

func newTestEnv() *testEnv {
	users := newStubUsers()
	env := &testEnv{
		users:     users,
		cache:     newMemCache(),
		locker:    newStubLocker(),
		publisher: &recordingPublisher{},
		ai:        &stubAI{},
		questions: newStubQuestions(users),
		tax:       taxonomy.Default(),
	}
	env.credits = NewCreditService(users, env.cache, env.locker, env.publisher, CreditPolicy{
		InitialCredits:  50,
		DailyCredits:    20,
		RefreshInterval: 24 * time.Hour,
	})
	env.credits.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) questionService() *QuestionService {
	return NewQuestionService(e.questions, e.ai, e.credits, e.publisher, e.tax)
}

func (e *testEnv) aiService() *AIService {
	return NewAIService(e.ai, e.questions, e.credits, e.locker, e.publisher, e.tax, 10, "")
}

var errBoom = errors.New("boom")
