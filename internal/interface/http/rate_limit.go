package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yanqian/faq-rag/internal/infra/config"
)

const (
	maxTrackedClients = 10_000
	idleClientTTL     = 5 * time.Minute
)

// rateLimitMiddleware applies a per-client token bucket. Authenticated
// requests are keyed by subject, anonymous ones by client IP.
func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newClientRateLimiter(cfg)
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		if limiter.allow(key) {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "client", key, "path", c.Request.URL.Path)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

func rateLimitKey(c *gin.Context) string {
	if claims, ok := getClaims(c); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return "ip:" + c.ClientIP()
}

type bucket struct {
	tokens float64
	last   time.Time
}

type clientRateLimiter struct {
	mu        sync.Mutex
	buckets   *expirable.LRU[string, *bucket]
	perMinute float64
	burst     float64
	now       func() time.Time
}

func newClientRateLimiter(cfg config.RateLimitConfig) *clientRateLimiter {
	burst := float64(cfg.Burst)
	if burst < 1 {
		burst = 1
	}
	return &clientRateLimiter{
		buckets:   expirable.NewLRU[string, *bucket](maxTrackedClients, nil, idleClientTTL),
		perMinute: float64(cfg.RequestsPerMinute),
		burst:     burst,
		now:       time.Now,
	}
}

func (l *clientRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
	} else if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = min(l.burst, b.tokens+elapsed.Minutes()*l.perMinute)
		b.last = now
	}
	// Re-adding refreshes the idle TTL.
	l.buckets.Add(key, b)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
