// Package storage provides the PostgreSQL connection layer shared by the
// engine's stores: a primary for mutations and optional read replicas for
// listing and search traffic.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ConnectionManager manages the primary and read replica connections.
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32 // Atomic counter for round-robin selection
	mu       sync.RWMutex
}

// ConnectionConfig holds database connection configuration.
type ConnectionConfig struct {
	PrimaryURL  string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// NewConnectionManager connects to the primary and any configured replicas.
// Replica failures are non-fatal: the manager falls back to the primary.
func NewConnectionManager(config ConnectionConfig) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		replicas: make([]*sql.DB, 0, len(config.ReplicaURLs)),
	}

	primary, err := sql.Open("postgres", config.PrimaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary connection: %w", err)
	}

	primary.SetMaxOpenConns(config.MaxConns)
	primary.SetMaxIdleConns(config.MinConns)
	primary.SetConnMaxLifetime(config.MaxLifetime)
	primary.SetConnMaxIdleTime(config.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := primary.PingContext(ctx); err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to ping primary: %w", err)
	}
	cm.primary = primary

	for i, replicaURL := range config.ReplicaURLs {
		replica, err := sql.Open("postgres", replicaURL)
		if err != nil {
			fmt.Printf("Warning: failed to open replica %d: %v\n", i, err)
			continue
		}

		replicaMaxConns := config.MaxConns / 2
		if replicaMaxConns < 2 {
			replicaMaxConns = 2
		}
		replica.SetMaxOpenConns(replicaMaxConns)
		replica.SetMaxIdleConns(config.MinConns)
		replica.SetConnMaxLifetime(config.MaxLifetime)
		replica.SetConnMaxIdleTime(config.MaxIdleTime)

		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		err = replica.PingContext(ctx)
		cancel()
		if err != nil {
			fmt.Printf("Warning: failed to ping replica %d: %v\n", i, err)
			replica.Close()
			continue
		}

		cm.replicas = append(cm.replicas, replica)
	}

	return cm, nil
}

// Primary returns the primary database connection (for writes).
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection, falling back
// to the primary when no replicas are configured.
func (cm *ConnectionManager) Replica() *sql.DB {
	cm.mu.RLock()
	replicaCount := len(cm.replicas)
	cm.mu.RUnlock()

	if replicaCount == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)
	replicaIndex := int(index % uint32(replicaCount))

	cm.mu.RLock()
	replica := cm.replicas[replicaIndex]
	cm.mu.RUnlock()

	return replica
}

// HealthCheck pings the primary and all replicas.
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}

	cm.mu.RLock()
	replicas := make([]*sql.DB, len(cm.replicas))
	copy(replicas, cm.replicas)
	cm.mu.RUnlock()

	var unhealthy []string
	for i, replica := range replicas {
		if err := replica.PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, fmt.Sprintf("replica %d: %v", i, err))
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy replicas: %s", strings.Join(unhealthy, "; "))
	}
	return nil
}

// Close closes the primary and all replica connections.
func (cm *ConnectionManager) Close() error {
	var errs []string
	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("primary: %v", err))
	}

	cm.mu.Lock()
	for i, replica := range cm.replicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("replica %d: %v", i, err))
		}
	}
	cm.replicas = nil
	cm.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Stats reports pool statistics for the primary connection. Exposed for the
// database gauges in observability.
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.primary.Stats()
}
