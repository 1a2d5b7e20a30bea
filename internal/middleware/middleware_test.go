package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	tokens map[string]string
}

func (f fakeValidator) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	id, ok := f.tokens[token]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return &models.User{ID: id, Email: id, Plan: models.PlanFree}, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	r.GET("/x", handlers...)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	v := fakeValidator{tokens: map[string]string{"good": "a@b.com"}}
	r := newRouter(AuthMiddleware(v))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(apperrors.CodeInvalidToken))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "bearer good")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.com", w.Body.String())

	// Токен в query принимается только для WebSocket
	w = serve(r, httptest.NewRequest(http.MethodGet, "/x?token=good", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(newRouter(WebSocketAuthMiddleware(v)), httptest.NewRequest(http.MethodGet, "/x?token=good", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_PerUser(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	setUser := func(id string) gin.HandlerFunc {
		return func(c *gin.Context) { c.Set("userID", id) }
	}
	alice := newRouter(setUser("alice"), rl.Handler())
	bob := newRouter(setUser("bob"), rl.Handler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(alice, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
	w := serve(alice, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	// Голосовой анализ тратит те же токены
	assert.False(t, rl.Allow("alice"))

	assert.Equal(t, http.StatusOK, serve(bob, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

	// Токен восстанавливается через секунду
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(alice, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)

	now = now.Add(time.Hour)
	assert.Equal(t, 2, rl.Cleanup(time.Minute))
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newRouter(RequestIDMiddleware())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	require.NoError(t, err)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", incoming)
	w = serve(r, req)
	assert.Equal(t, incoming, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w = serve(r, req)
	assert.NotEqual(t, "<script>", w.Header().Get("X-Request-ID"))
}

func TestTimeoutMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/x", TimeoutMiddleware(50*time.Millisecond), func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("production", &buf)
	t.Cleanup(func() { logger.Init("test") })

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	}

	type entry struct {
		Level     string `json:"level"`
		Msg       string `json:"msg"`
		Path      string `json:"path"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
	}
	var entries []entry
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e entry
		require.NoError(t, json.Unmarshal(line, &e))
		entries = append(entries, e)
	}

	require.Len(t, entries, 3)
	assert.Equal(t, entry{Level: "INFO", Msg: "HTTP Request", Path: "/ok", Status: 200, RequestID: entries[0].RequestID}, entries[0])
	assert.Equal(t, "WARN", entries[1].Level)
	assert.Equal(t, "HTTP Client Error", entries[1].Msg)
	assert.Equal(t, "ERROR", entries[2].Level)
	assert.Equal(t, "HTTP Server Error", entries[2].Msg)
	assert.Equal(t, 500, entries[2].Status)
	for _, e := range entries {
		assert.NotEmpty(t, e.RequestID)
	}
}
