package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate-limiting configuration for the control plane.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	PerUser        bool
}

// RateLimiter manages a token-bucket limiter per client key.
type RateLimiter struct {
	config   RateLimitConfig
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewRateLimiter creates a rate limiter and starts its background cleanup.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSec), rl.config.Burst)
	rl.limiters[key] = limiter
	return limiter
}

// cleanup bounds limiter-map growth from unbounded distinct clients.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		if len(rl.limiters) > 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware creates the rate-limiting middleware.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			var key string
			if limiter.config.PerUser {
				if claims, ok := GetClaimsFromContext(r.Context()); ok {
					key = fmt.Sprintf("user:%s", claims.Subject)
				} else {
					key = getClientIP(r)
				}
			} else {
				key = getClientIP(r)
			}

			clientLimiter := limiter.getLimiter(key)
			if !clientLimiter.Allow() {
				writeRateLimitError(w, fmt.Sprintf("rate limit exceeded for %s", key))
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.Burst))
			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func writeRateLimitError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error": "%s", "status": 429}`, message)
}
