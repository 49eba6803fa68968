// Package ratelimit throttles requests per client.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Window is the period the limit applies to.
	Window() time.Duration
}

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: "rl"}
}

func (l *RedisLimiter) Window() time.Duration { return l.window }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}

	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		count, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false, fmt.Errorf("parse rate limit count: %w", err)
		}
	default:
		return false, fmt.Errorf("unexpected rate limit result type %T", res)
	}
	return count <= int64(l.limit), nil
}

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	window  time.Duration
	idle    time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows limit requests per window with bursts up to limit.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		idle:    10 * window,
		buckets: map[string]*bucket{},
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Window() time.Duration { return l.window }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= 10000 {
			l.prune(now)
		}
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// prune drops buckets idle for longer than l.idle. The caller holds l.mu.
func (l *MemoryLimiter) prune(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, k)
		}
	}
}

// Middleware rejects over-limit clients with 429. Limiter errors let the request through.
func Middleware(l Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", retryAfter(l.Window()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// retryAfter renders a window as whole seconds, rounded up and at least one.
func retryAfter(window time.Duration) string {
	secs := int(math.Ceil(window.Seconds()))
	return strconv.Itoa(max(secs, 1))
}
