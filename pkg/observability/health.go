package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker checks the engine's dependencies. Postgres is load-bearing:
// an unreachable database makes the service unhealthy. Redis only backs the
// principal cache and rate limits, so losing it degrades rather than fails.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a health checker. redis may be nil when no cache
// is configured.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient}
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the check result for one dependency.
type DependencyStatus struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency_ms,omitempty"`
}

// Liveness answers 200 whenever the process is serving requests.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness checks every dependency, answering 503 only when the service
// cannot serve at all. A degraded report still answers 200.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check pings the database and, when configured, Redis.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		db := h.checkDatabase(ctx)
		status.Dependencies["postgres"] = db
		if db.Status != StatusHealthy {
			status.Status = db.Status
		}
	}

	if h.redis != nil {
		r := h.checkRedis(ctx)
		status.Dependencies["redis"] = r
		if r.Status == StatusUnhealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()

	if err := h.db.PingContext(ctx); err != nil {
		return DependencyStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}

	// The engine cannot answer visibility queries on an unmigrated schema.
	var applied int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied)
	if err != nil {
		return DependencyStatus{
			Status:  StatusUnhealthy,
			Message: "schema check failed: " + err.Error(),
			Latency: time.Since(start),
		}
	}

	status := DependencyStatus{Status: StatusHealthy, Latency: time.Since(start)}
	stats := h.db.Stats()
	if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Message = "connection pool exhausted"
	}
	return status
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return DependencyStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}
	return DependencyStatus{Status: StatusHealthy, Latency: time.Since(start)}
}
