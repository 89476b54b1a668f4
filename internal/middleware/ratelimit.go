package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/response"
)

// RateLimiter keeps one token bucket per key and forgets idle keys.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	maxAge time.Duration
	mu     sync.Mutex
	store  map[string]*limiterEntry
	now    func() time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	updated time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		limit:  rate.Limit(perSecond),
		burst:  burst,
		maxAge: 10 * time.Minute,
		store:  make(map[string]*limiterEntry),
		now:    time.Now,
	}
}

// Allow consumes one token for key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	entry, ok := r.store[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst), updated: now}
		r.store[key] = entry
		for k, e := range r.store {
			if now.Sub(e.updated) > r.maxAge {
				delete(r.store, k)
			}
		}
	}
	entry.updated = now
	return entry.limiter.AllowN(now, 1)
}

// RateLimit answers 429 once the key returned by keyFunc runs out of tokens.
// An empty key is not limited.
func RateLimit(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" || limiter.Allow(key) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		response.Error(c, appErrors.ErrTooManyRequests)
		c.Abort()
	}
}

// ByClientIP keys on the client address as resolved by gin.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByAPIKeyPrefix keys on the public prefix of the API key, falling back to the client IP.
func ByAPIKeyPrefix(c *gin.Context) string {
	key := strings.TrimSpace(c.GetHeader(APIKeyHeader))
	if len(key) >= 8 {
		return "key:" + key[:8]
	}
	return ByClientIP(c)
}
