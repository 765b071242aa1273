package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter shares a fixed-window rate limit across
// instances through Redis.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed rate limiter.
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = AnonymousRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks the shared window counter for the key. Redis errors are
// returned alongside allowed=true so callers can fail open.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the number of remaining requests in the window.
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the window resets.
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the counter for a key.
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// DistributedRateLimitMiddleware limits requests per principal with a
// Redis-shared budget.
type DistributedRateLimitMiddleware struct {
	userLimiter      *DistributedRateLimiter
	elevatedLimiter  *DistributedRateLimiter
	anonymousLimiter *DistributedRateLimiter
}

// NewDistributedRateLimitMiddleware creates a Redis-backed rate limit
// middleware with the stock per-role budgets.
func NewDistributedRateLimitMiddleware(redisClient *redis.Client) *DistributedRateLimitMiddleware {
	return &DistributedRateLimitMiddleware{
		userLimiter:      NewDistributedRateLimiter(redisClient, UserRateLimitConfig(), "ratelimit:user"),
		elevatedLimiter:  NewDistributedRateLimiter(redisClient, ElevatedRateLimitConfig(), "ratelimit:elevated"),
		anonymousLimiter: NewDistributedRateLimiter(redisClient, AnonymousRateLimitConfig(), "ratelimit:anon"),
	}
}

// Handler wraps an HTTP handler with distributed rate limiting. Redis
// failures never block traffic; the request proceeds without headers.
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key, limiter := m.pick(r)

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			m.rateLimitExceeded(ctx, w, limiter, key)
			return
		}

		remaining, err := limiter.Remaining(ctx, key)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		if ttl, err := limiter.TTL(ctx, key); err == nil && ttl > 0 {
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *DistributedRateLimitMiddleware) pick(r *http.Request) (string, *DistributedRateLimiter) {
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

func (m *DistributedRateLimitMiddleware) rateLimitExceeded(ctx context.Context, w http.ResponseWriter, limiter *DistributedRateLimiter, key string) {
	retryAfter := limiter.config.WindowDuration.Seconds()
	if ttl, err := limiter.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(fmt.Sprintf(`{"error":"rate limit exceeded","retry_after":%.0f}`, retryAfter)))
}
