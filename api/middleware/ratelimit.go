package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

const (
	evictAfter    = time.Hour
	evictInterval = 5 * time.Minute
)

// ipLimiters holds one token bucket per client IP. Buckets idle past
// evictAfter are dropped so the map cannot grow without bound.
type ipLimiters struct {
	mu       sync.Mutex
	rps      float64
	burst    int
	buckets  map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func newIPLimiters(cfg config.RateLimitConfig) *ipLimiters {
	l := &ipLimiters{
		rps:      cfg.RequestsPerSecond,
		burst:    cfg.Burst,
		buckets:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
	go l.evictLoop()
	return l
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.buckets[ip] = b
	}
	l.lastSeen[ip] = time.Now()
	return b.Allow()
}

func (l *ipLimiters) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-evictAfter)
		l.mu.Lock()
		for ip, seen := range l.lastSeen {
			if seen.Before(cutoff) {
				delete(l.buckets, ip)
				delete(l.lastSeen, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware
// powered by golang.org/x/time/rate.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := newIPLimiters(cfg)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
