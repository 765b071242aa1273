package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/contextkeys"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
)

// RateLimitConfig defines one rate limit budget.
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window.
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting.
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate.
	BurstSize int
}

// AnonymousRateLimitConfig returns the budget for unauthenticated callers.
func AnonymousRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// UserRateLimitConfig returns the budget for signed-in members.
func UserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// ElevatedRateLimitConfig returns the budget for editors, managers and
// superusers, whose moderation tooling batches many requests.
func ElevatedRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 5000,
		WindowDuration:    time.Minute,
		BurstSize:         100,
	}
}

// RateLimiter is an in-memory token bucket limiter.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates an in-memory rate limiter.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = AnonymousRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a request for the key is within budget and
// consumes one token when it is.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.config.RequestsPerWindow + rl.config.BurstSize,
			lastUpdate: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)

	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		maxTokens := rl.config.RequestsPerWindow + rl.config.BurstSize
		if b.tokens > maxTokens {
			b.tokens = maxTokens
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the number of remaining tokens for a key.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Cleanup removes buckets idle for more than two windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// RateLimitMiddleware limits requests per principal: signed-in users by
// user id, anonymous callers by client IP.
type RateLimitMiddleware struct {
	userLimiter      *RateLimiter
	elevatedLimiter  *RateLimiter
	anonymousLimiter *RateLimiter
}

// NewRateLimitMiddleware creates a rate limit middleware with the stock
// per-role budgets.
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		userLimiter:      NewRateLimiter(UserRateLimitConfig()),
		elevatedLimiter:  NewRateLimiter(ElevatedRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(AnonymousRateLimitConfig()),
	}
}

// Handler wraps an HTTP handler with rate limiting. It must run after
// principal resolution so signed-in callers are keyed by user id.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, limiter := m.pick(r)

		if !limiter.Allow(key) {
			rateLimitExceeded(w, limiter.config)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(key)))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(limiter.config.WindowDuration).Unix()))

		next.ServeHTTP(w, r)
	})
}

// StartCleanup evicts idle buckets on the given interval until ctx is
// cancelled.
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.userLimiter.Cleanup()
				m.elevatedLimiter.Cleanup()
				m.anonymousLimiter.Cleanup()
			}
		}
	}()
}

func (m *RateLimitMiddleware) pick(r *http.Request) (string, *RateLimiter) {
	p := PrincipalFromRequest(r)
	if p.IsAnonymous() {
		return "ip:" + ClientIP(r), m.anonymousLimiter
	}
	key := fmt.Sprintf("user:%d", p.UserID())
	if p.HasElevatedRole() {
		return key, m.elevatedLimiter
	}
	return key, m.userLimiter
}

func rateLimitExceeded(w http.ResponseWriter, config *RateLimitConfig) {
	retryAfter := config.WindowDuration.Seconds()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(fmt.Sprintf(`{"error":"rate limit exceeded","retry_after":%.0f}`, retryAfter)))
}

// PrincipalFromRequest returns the principal attached by the API's
// principal middleware, or the anonymous principal.
func PrincipalFromRequest(r *http.Request) *identity.Principal {
	if p, ok := r.Context().Value(contextkeys.PrincipalKey).(*identity.Principal); ok && p != nil {
		return p
	}
	return identity.Anonymous()
}

// ClientIP extracts the client address, honoring X-Forwarded-For from a
// fronting proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
