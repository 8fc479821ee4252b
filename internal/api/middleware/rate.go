package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mjlescano/playcha/internal/shared/types"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL is how long an unseen client keeps its limiter
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the limits applied when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		IdleTTL:           10 * time.Minute,
	}
}

// limiters holds one token bucket per client, dropping idle ones
type limiters struct {
	cfg       RateLimitConfig
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiters(cfg RateLimitConfig) *limiters {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	return &limiters{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.cfg.IdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= l.cfg.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (l *limiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newLimiters(cfg))
}

func rateLimit(l *limiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := l.get(c.ClientIP())
		if !limiter.AllowN(l.now(), 1) {
			reject(c, limiter)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			reject(c, limiter)
			return
		}
		c.Next()
	}
}

// reject answers with the /v1 error envelope
func reject(c *gin.Context, limiter *rate.Limiter) {
	if limit := float64(limiter.Limit()); limit > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/limit))))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, types.V1Response{
		Status:  types.StatusError,
		Message: "Error: rate limit exceeded",
	})
}
