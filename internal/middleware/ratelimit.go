package middleware

import (
	"context"
	"sync"
	"time"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter - token bucket на пользователя (или IP для анонимов)
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter - perMinute запросов в минуту с пиком burst
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		now:      time.Now,
	}
}

// getLimiter returns a rate limiter for the given key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// Allow тратит токен key; false - лимит исчерпан
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).AllowN(rl.now(), 1)
}

// Handler ставится после AuthMiddleware на дорогие AI маршруты
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			logger.CtxWarn(c.Request.Context(), "Rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.NewRateLimitedError())
			return
		}
		c.Next()
	}
}

// Cleanup удаляет лимитеры, не использованные дольше idle
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// StartCleanup периодически чистит лимитеры до отмены ctx
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(interval)
			}
		}
	}()
}
