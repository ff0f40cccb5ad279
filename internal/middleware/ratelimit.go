package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per client per minute.
// perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	l := &RateLimiter{limit: rate.Inf, burst: 1, now: time.Now}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow reports whether the client identified by key may proceed.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	v, _ := l.limiters.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)})
	cl := v.(*clientLimiter)

	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle for longer than idle and returns how many
// were removed.
func (l *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	removed := 0
	l.limiters.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		cl.mu.Lock()
		stale := cl.lastSeen.Before(cutoff)
		cl.mu.Unlock()
		if stale {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}
