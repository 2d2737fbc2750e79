package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
)

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than idle are dropped; by then a fresh bucket is equivalent.
type ClientLimiter struct {
	clients *gocache.Cache
	rps     rate.Limit
	burst   int
}

const (
	minLimiterIdle = time.Minute
	maxLimiterIdle = 24 * time.Hour
)

func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	idle := minLimiterIdle
	if rps > 0 && !math.IsInf(rps, 1) {
		refill := math.Min(float64(burst)/rps, maxLimiterIdle.Seconds())
		if d := time.Duration(refill * float64(time.Second)); d > idle {
			idle = d
		}
	}
	return newClientLimiter(rps, burst, idle)
}

func newClientLimiter(rps float64, burst int, idle time.Duration) *ClientLimiter {
	return &ClientLimiter{
		clients: gocache.New(idle, idle),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether key may proceed now.
func (l *ClientLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *ClientLimiter) get(key string) *rate.Limiter {
	if v, ok := l.clients.Get(key); ok {
		lim := v.(*rate.Limiter)
		// touch so only idle clients expire
		l.clients.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	if err := l.clients.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// another request for key won the race
		if v, ok := l.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Len is the number of clients currently tracked, expired ones included until swept.
func (l *ClientLimiter) Len() int { return l.clients.ItemCount() }

// RetryAfter is the whole-second wait for one token to refill.
func (l *ClientLimiter) RetryAfter() int {
	if l.rps <= 0 {
		return 1
	}
	s := int(math.Ceil(1 / float64(l.rps)))
	if s < 1 {
		s = 1
	}
	return s
}

// RateLimit rejects requests from a client IP that exceeds its bucket.
func RateLimit(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rps == rate.Inf {
			c.Next()
			return
		}
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(l.RetryAfter()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
	}
}
