package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAccounts(t *testing.T) (*auth.Service, string) {
	t.Helper()
	accounts := auth.NewService(memstore.New(), auth.NewTokens("secret"))
	_, token, err := accounts.Register(context.Background(), models.RegisterRequest{
		Name: "Ada", Email: "ada@campus.edu", Password: "secret1",
	})
	require.NoError(t, err)
	return accounts, token
}

func whoami(c *gin.Context) {
	actor, ok := CurrentActor(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"anonymous": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	accounts, token := newAccounts(t)
	r := gin.New()
	r.GET("/", AuthMiddleware(accounts), whoami)

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Authorization token required"}`, w.Body.String())

	w = do(r, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = do(r, "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"user"`)
}

func TestOptionalAuth(t *testing.T) {
	accounts, token := newAccounts(t)
	r := gin.New()
	r.GET("/", OptionalAuth(accounts), whoami)

	assert.Contains(t, do(r, "").Body.String(), "anonymous")
	assert.Contains(t, do(r, "Bearer broken").Body.String(), "anonymous")
	assert.Contains(t, do(r, "Bearer "+token).Body.String(), `"role":"user"`)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(NewIPRateLimiter(0.001, 2)), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	w := do(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRateLimiterIsPerIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 1)
	assert.Same(t, rl.Limiter("10.0.0.1"), rl.Limiter("10.0.0.1"))
	assert.NotSame(t, rl.Limiter("10.0.0.1"), rl.Limiter("10.0.0.2"))
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewIPRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }

	rl.Limiter("10.0.0.1")
	clock = clock.Add(5 * time.Minute)
	rl.Limiter("10.0.0.2")
	clock = clock.Add(6 * time.Minute)
	require.Equal(t, 2, rl.Len())

	assert.Equal(t, 1, rl.Evict(10*time.Minute))
	assert.Equal(t, 1, rl.Len())

	// a returning visitor starts with a fresh bucket
	again := rl.Limiter("10.0.0.1")
	assert.True(t, again.Allow())
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiterSweepStopsWithContext(t *testing.T) {
	rl := NewIPRateLimiter(1, 1)
	rl.now = func() time.Time { return time.Now().Add(-time.Hour) }
	rl.Limiter("10.0.0.1")
	rl.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Sweep(ctx, time.Millisecond, time.Minute)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not return after cancel")
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := do(r, "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
