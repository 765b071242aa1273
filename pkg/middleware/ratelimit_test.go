package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/mediacms-io/mediacms-go/pkg/contextkeys"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
)

func signedInRequest(r *http.Request, userID int64, elevated bool) *http.Request {
	p := &identity.Principal{ID: &userID, IsEditor: elevated}
	return r.WithContext(contextkeys.WithPrincipal(r.Context(), p))
}

func TestRateLimiterAllow(t *testing.T) {
	config := &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
	}
	limiter := NewRateLimiter(config)

	key := "user:1"
	allowedCount := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		if limiter.Allow(key) {
			allowedCount++
		}
	}

	expected := config.RequestsPerWindow + config.BurstSize
	if allowedCount != expected {
		t.Errorf("allowed %d requests, want %d", allowedCount, expected)
	}

	// Tokens refill over time.
	time.Sleep(1100 * time.Millisecond)
	if !limiter.Allow(key) {
		t.Error("expected request to be allowed after refill")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	if !limiter.Allow("user:1") {
		t.Fatal("first request for user:1 should pass")
	}
	if limiter.Allow("user:1") {
		t.Error("second request for user:1 should be limited")
	}
	if !limiter.Allow("user:2") {
		t.Error("user:2 should have its own bucket")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Millisecond,
		BurstSize:         0,
	})
	limiter.Allow("stale")

	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup()

	limiter.mu.RLock()
	_, exists := limiter.buckets["stale"]
	limiter.mu.RUnlock()
	if exists {
		t.Error("expected stale bucket to be evicted")
	}
}

func TestRateLimitMiddlewareKeying(t *testing.T) {
	m := NewRateLimitMiddleware()
	handled := 0
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled++
	}))

	// Anonymous request keyed by IP.
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || handled != 1 {
		t.Fatalf("anonymous request blocked: %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("anonymous limit header = %q, want 100", rec.Header().Get("X-RateLimit-Limit"))
	}

	// Signed-in request gets the wider member budget.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, signedInRequest(httptest.NewRequest("GET", "/", nil), 7, false))
	if rec.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("member limit header = %q, want 1000", rec.Header().Get("X-RateLimit-Limit"))
	}

	// Elevated roles get the widest budget.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, signedInRequest(httptest.NewRequest("GET", "/", nil), 8, true))
	if rec.Header().Get("X-RateLimit-Limit") != "5000" {
		t.Errorf("elevated limit header = %q, want 5000", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitMiddlewareRejectsOverBudget(t *testing.T) {
	m := &RateLimitMiddleware{
		userLimiter:      NewRateLimiter(UserRateLimitConfig()),
		elevatedLimiter:  NewRateLimiter(ElevatedRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, BurstSize: 0}),
	}
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "198.51.100.7:1000"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
	if !strings.Contains(last.Body.String(), "rate limit exceeded") {
		t.Errorf("unexpected body: %s", last.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.4:5000"
	if got := ClientIP(req); got != "192.0.2.4" {
		t.Errorf("ClientIP = %q, want 192.0.2.4", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.1" {
		t.Errorf("ClientIP with X-Forwarded-For = %q, want 203.0.113.1", got)
	}
}

func TestDistributedRateLimiter(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := t.Context()
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "user:1")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, err := limiter.Allow(ctx, "user:1")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("third request should exceed the window")
	}

	remaining, err := limiter.Remaining(ctx, "user:1")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	// The window resets once the key expires.
	srv.FastForward(2 * time.Minute)
	allowed, err = limiter.Allow(ctx, "user:1")
	if err != nil || !allowed {
		t.Errorf("after window reset: allowed=%v err=%v", allowed, err)
	}
}

func TestDistributedMiddlewareFailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	srv.Close()

	m := NewDistributedRateLimitMiddleware(client)
	handled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if !handled || rec.Code != http.StatusOK {
		t.Errorf("request should pass when redis is down, got %d", rec.Code)
	}
}
