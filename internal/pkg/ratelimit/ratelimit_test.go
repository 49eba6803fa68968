package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "fourth request in the window")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other clients have their own bucket")

	// One token refills every 20s.
	now = now.Add(21 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryLimiter_Prune(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	now := time.Now()
	l.now = func() time.Time { return now }
	_, _ = l.Allow(context.Background(), "old")

	now = now.Add(time.Hour)
	l.prune(now)
	assert.Empty(t, l.buckets)
}

type stubLimiter struct {
	allowed bool
	err     error
	window  time.Duration
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allowed, s.err }
func (s stubLimiter) Window() time.Duration { return s.window }

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		limiter Limiter
		code    int
	}{
		{"allowed", stubLimiter{allowed: true}, http.StatusOK},
		{"throttled", stubLimiter{allowed: false}, http.StatusTooManyRequests},
		{"fails open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Middleware(tt.limiter, slog.New(slog.DiscardHandler)))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestMiddlewareRetryAfterFollowsWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := map[time.Duration]string{
		time.Minute:             "60",
		30 * time.Second:        "30",
		1500 * time.Millisecond: "2",
		time.Millisecond:        "1",
	}
	for window, want := range tests {
		t.Run(window.String(), func(t *testing.T) {
			r := gin.New()
			r.Use(Middleware(stubLimiter{window: window}, slog.New(slog.DiscardHandler)))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, want, w.Header().Get("Retry-After"))
		})
	}
}

func TestLimitersReportWindow(t *testing.T) {
	assert.Equal(t, 10*time.Second, NewMemoryLimiter(5, 10*time.Second).Window())
	assert.Equal(t, time.Minute, NewMemoryLimiter(5, 0).Window())
	assert.Equal(t, 2*time.Minute, NewRedisLimiter(nil, 5, 2*time.Minute).Window())
}
