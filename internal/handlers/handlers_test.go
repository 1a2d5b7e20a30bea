package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dreamweaver_backend/internal/auth"
	"dreamweaver_backend/internal/middleware"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/internal/services/dto"
	"dreamweaver_backend/internal/store"
	"dreamweaver_backend/internal/validator"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJournal struct {
	submitted  []string
	chatDream  *models.Dream
	chatErr    error
	chatReply  string
	snapshotOf string
}

func (f *fakeJournal) SubmitDream(ctx context.Context, userID, text string, mood models.DreamMood, opts models.AnalysisOptions) (*models.Dream, error) {
	f.submitted = append(f.submitted, text)
	return &models.Dream{ID: "d1", Text: text, Mood: mood}, nil
}

func (f *fakeJournal) ListDreams(ctx context.Context, userID string) ([]models.Dream, error) {
	return nil, nil
}

func (f *fakeJournal) GetDream(ctx context.Context, userID, dreamID string) (*models.Dream, error) {
	return nil, apperrors.ErrDreamNotFound
}

func (f *fakeJournal) SendChatMessage(ctx context.Context, userID, dreamID, message string) (*models.Dream, string, error) {
	return f.chatDream, f.chatReply, f.chatErr
}

func (f *fakeJournal) Snapshot(ctx context.Context, userID string) (*dto.JournalSnapshot, error) {
	f.snapshotOf = userID
	return &dto.JournalSnapshot{User: models.User{ID: userID}, MonthlyLimit: 3}, nil
}

type fakeArt struct{}

func (fakeArt) GenerateArt(ctx context.Context, userID, dreamID, aspectRatio string) (*models.DreamArt, error) {
	return &models.DreamArt{URL: "/files/art/a.jpg", ThumbnailURL: "/files/art/a_thumb.jpg"}, nil
}

type fakeInsights struct {
	lat, lng float64
}

func (f *fakeInsights) GenerateReport(ctx context.Context, userID string, period models.ReportPeriod) (*models.InsightReport, error) {
	return &models.InsightReport{Period: period}, nil
}

func (f *fakeInsights) GlobalTrends(ctx context.Context, userID string) (*models.GlobalTrends, error) {
	return &models.GlobalTrends{Themes: []models.ThemeCount{}}, nil
}

func (f *fakeInsights) CommunityInsights(ctx context.Context, query string, lat, lng float64) (*models.CommunityInsight, error) {
	f.lat, f.lng = lat, lng
	return &models.CommunityInsight{Text: "answer"}, nil
}

type fakeBilling struct {
	payload   []byte
	signature string
	err       error
}

func (f *fakeBilling) CreateCheckout(ctx context.Context, userID string) (*dto.CheckoutResponse, error) {
	return &dto.CheckoutResponse{URL: "https://checkout.example/" + userID, SessionID: "cs_1"}, nil
}

func (f *fakeBilling) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	f.payload = payload
	f.signature = signature
	return f.err
}

type testServer struct {
	router   *gin.Engine
	auth     services.AuthService
	journal  *fakeJournal
	insights *fakeInsights
	billing  *fakeBilling
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := store.NewMemoryStore()
	keys := store.Keys{Prefix: "test"}
	authService := services.NewAuthService(
		repositories.NewUserRepository(s, keys),
		auth.NewTokenManager("test-secret", time.Hour),
		time.Now,
	)

	ts := &testServer{
		auth:     authService,
		journal:  &fakeJournal{},
		insights: &fakeInsights{},
		billing:  &fakeBilling{},
	}

	base := NewBaseHandler(validator.New())
	appHandlers := &AppHandlers{
		AuthHandler:    NewAuthHandler(base, authService),
		JournalHandler: NewJournalHandler(base, ts.journal, fakeArt{}),
		InsightHandler: NewInsightHandler(base, ts.insights),
		BillingHandler: NewBillingHandler(base, ts.billing),
	}

	r := gin.New()
	api := r.Group("/api/v1")
	protected := api.Group("", middleware.AuthMiddleware(authService))
	appHandlers.RegisterRoutes(RouteGroups{
		Public:    api,
		Protected: protected,
		AI:        protected.Group("", middleware.NewRateLimiter(600, 100).Handler()),
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, " Dreamer@Example.com ")

	w := ts.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "dreamer@example.com", user.ID)
	assert.Equal(t, models.PlanFree, user.Plan)

	w = ts.do(http.MethodPost, "/api/v1/auth/trial", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.NotNil(t, user.TrialEndDate)

	w = ts.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// После выхода сессии нет
	w = ts.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignUp_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeValidationFailed), errorCode(t, w))

	ts.signUp(t, "a@b.com")
	w = ts.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "A@B.com", "password": "secret123"})
	assert.Equal(t, string(apperrors.CodeDuplicateAccount), errorCode(t, w))

	w = ts.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@b.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(apperrors.CodeInvalidCredentials), errorCode(t, w))
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	assert.Equal(t, string(apperrors.CodeValidationFailed), body.Error.Code)
	assert.NotEmpty(t, body.Error.Details["details"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/journal", "/api/v1/dreams", "/api/v1/insights/trends"} {
		w := ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSubmitDream(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	w := ts.do(http.MethodPost, "/api/v1/dreams", token, gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.journal.submitted)

	w = ts.do(http.MethodPost, "/api/v1/dreams", token, gin.H{"text": "I was flying", "mood": "Angry"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/dreams", token, gin.H{"text": "I was flying", "mood": "Happy"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"I was flying"}, ts.journal.submitted)
}

func TestJournalAndDreams(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	w := ts.do(http.MethodGet, "/api/v1/journal", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.com", ts.journal.snapshotOf)

	w = ts.do(http.MethodGet, "/api/v1/dreams", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = ts.do(http.MethodGet, "/api/v1/dreams/2025-06-15T12:00:00Z", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.CodeDreamNotFound), errorCode(t, w))
}

func TestSendChatMessage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	dream := &models.Dream{ID: "d1", ChatHistory: []models.ChatMessage{
		{Role: models.RoleUser, Content: "why?"},
		{Role: models.RoleModel, Content: "Because."},
	}}
	ts.journal.chatDream = dream
	ts.journal.chatReply = "Because."

	w := ts.do(http.MethodPost, "/api/v1/dreams/d1/chat", token, gin.H{"message": "why?"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ChatMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Because.", resp.Reply)
	assert.Len(t, resp.Dream.ChatHistory, 2)

	// Модель не ответила: ошибка и история с запасным ответом
	ts.journal.chatReply = ""
	ts.journal.chatErr = apperrors.ErrConversationFailed(errors.New("boom"))
	w = ts.do(http.MethodPost, "/api/v1/dreams/d1/chat", token, gin.H{"message": "why?"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	var failure struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Dream *models.Dream `json:"dream"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failure))
	assert.Equal(t, string(apperrors.CodeConversationFailed), failure.Error.Code)
	require.NotNil(t, failure.Dream)
	assert.Equal(t, "d1", failure.Dream.ID)

	// Без сна - обычный ответ об ошибке
	ts.journal.chatDream = nil
	ts.journal.chatErr = apperrors.ErrDreamNotFound
	w = ts.do(http.MethodPost, "/api/v1/dreams/d1/chat", token, gin.H{"message": "why?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateArt_ValidatesAspectRatio(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	w := ts.do(http.MethodPost, "/api/v1/dreams/d1/art", token, gin.H{"aspectRatio": "2:1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/dreams/d1/art", token, gin.H{"aspectRatio": "16:9"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "a_thumb.jpg")
}

func TestInsights(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	w := ts.do(http.MethodPost, "/api/v1/insights/report", token, gin.H{"period": "14"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/insights/report", token, gin.H{"period": "30"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/insights/trends", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/insights/community", token, gin.H{"query": "flying"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/insights/community", token, gin.H{"query": "flying", "lat": 200.0, "lng": 10.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Нулевые координаты допустимы
	w = ts.do(http.MethodPost, "/api/v1/insights/community", token, gin.H{"query": "flying", "lat": 0.0, "lng": -73.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.0, ts.insights.lat)
	assert.Equal(t, -73.5, ts.insights.lng)
}

func TestBilling(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "a@b.com")

	w := ts.do(http.MethodPost, "/api/v1/billing/checkout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var checkout dto.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	assert.Equal(t, "https://checkout.example/a@b.com", checkout.URL)

	// Webhook без токена, тело передается как есть
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"id":"evt_1"}`, string(ts.billing.payload))
	assert.Equal(t, "t=1,v1=abc", ts.billing.signature)

	ts.billing.err = apperrors.NewBadRequestError("Signature verification failed")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewBufferString(`{}`))
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
