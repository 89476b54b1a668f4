package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("a"))
}

func TestRateLimiterForgetsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(time.Hour)
	limiter.Allow("new")

	assert.NotContains(t, limiter.store, "old")
	assert.Contains(t, limiter.store, "new")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(NewRateLimiter(0.001, 1), ByAPIKeyPrefix), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("").Code)
	limited := send("")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, send("abcd1234xyz").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("abcd1234other").Code)
	assert.Equal(t, http.StatusNoContent, send("ffff0000xyz").Code)
}
