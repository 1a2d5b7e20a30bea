package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"dreamweaver_backend/internal/auth"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/store"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock     *clock
	store     store.Store
	userRepo  repositories.UserRepository
	dreamRepo repositories.DreamRepository
	tokens    *auth.TokenManager
	auth      AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := newClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	s := store.NewMemoryStore()
	keys := store.Keys{Prefix: "test"}
	userRepo := repositories.NewUserRepository(s, keys)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	return &testEnv{
		clock:     c,
		store:     s,
		userRepo:  userRepo,
		dreamRepo: repositories.NewDreamRepository(s, keys, c.Now),
		tokens:    tokens,
		auth:      NewAuthService(userRepo, tokens, c.Now),
	}
}

// signUp регистрирует пользователя и возвращает его id
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	resp, err := e.auth.SignUp(context.Background(), email, "secret123")
	require.NoError(t, err)
	return resp.User.ID
}

func (e *testEnv) setPlan(t *testing.T, userID string, plan models.Plan) {
	t.Helper()
	_, err := e.userRepo.Update(context.Background(), userID, func(u *models.StoredUser) { u.Plan = plan })
	require.NoError(t, err)
}

// addDream сохраняет сон, созданный в момент at
func (e *testEnv) addDream(t *testing.T, userID string, at time.Time, a *models.DreamAnalysis) *models.Dream {
	t.Helper()
	saved := e.clock.Now()
	e.clock.Set(at)
	defer e.clock.Set(saved)

	d, err := e.dreamRepo.CreateDream(context.Background(), userID, "dream text", "", a)
	require.NoError(t, err)
	return d
}

func sampleAnalysis(themes ...string) *models.DreamAnalysis {
	if len(themes) == 0 {
		themes = []string{"flight", "freedom", "sky"}
	}
	return &models.DreamAnalysis{
		Themes:         themes,
		Emotions:       models.EmotionScores{Joy: 0.7, Fear: 0.1},
		Summary:        "Flying over a city",
		Interpretation: "A wish for freedom",
		Prompts:        []string{"Where were you going?", "Who was with you?"},
	}
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	prior  []models.Dream
	opts   models.AnalysisOptions
	result *models.DreamAnalysis
	err    error

	// entered получает сигнал при входе в Analyze, gate держит вызов до закрытия
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, dreamText string, prior []models.Dream, opts models.AnalysisOptions) (*models.DreamAnalysis, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prior = prior
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return sampleAnalysis(), nil
}
