package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter tracks the token bucket and last activity for one client IP.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client-IP token bucket. Buckets refill the full
// burst over the window, matching a fixed request budget per window. Idle
// client entries are evicted after three windows.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	window   time.Duration
	message  string
	lastSwep time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window per client IP.
func NewRateLimiter(maxRequests int, window time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
		window:   window,
		message:  message,
		lastSwep: time.Now(),
	}
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.clientFor(c.ClientIP())

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          rl.message,
				"correlation_id": c.GetString("correlation_id"),
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) clientFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSwep) > rl.window {
		rl.sweep(now)
		rl.lastSwep = now
	}

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter
}

// sweep drops clients idle for more than three windows. Caller holds the lock.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-3 * rl.window)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// GeneralRateLimiter limits all API traffic per client IP.
func GeneralRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(100, 15*time.Minute,
		"Too many requests from this IP, please try again later.").Middleware()
}

// PredictionRateLimiter applies a tighter budget to prediction requests.
func PredictionRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(20, 15*time.Minute,
		"Too many prediction requests. Please try again in 15 minutes.").Middleware()
}
