package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/storage"
)

// startGaugeLoop refreshes the pool and business gauges until ctx is
// cancelled. Counts run against a replica so the loop never competes with
// writes.
func startGaugeLoop(ctx context.Context, conns *storage.ConnectionManager, metrics *observability.Metrics, logger *observability.Logger) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updateGauges(ctx, conns, metrics, logger)
			}
		}
	}()
}

func updateGauges(ctx context.Context, conns *storage.ConnectionManager, metrics *observability.Metrics, logger *observability.Logger) {
	stats := conns.Stats()
	metrics.DBConnectionsActive.Set(float64(stats.InUse))
	metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	metrics.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	metrics.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db := conns.Replica()
	for _, g := range []struct {
		query string
		gauge interface{ Set(float64) }
	}{
		{"SELECT COUNT(*) FROM media", metrics.MediaTotal},
		{"SELECT COUNT(*) FROM media WHERE listable", metrics.ListableTotal},
		{"SELECT COUNT(*) FROM playlists", metrics.PlaylistsTotal},
		{"SELECT COUNT(DISTINCT user_id) FROM sessions WHERE expires_at IS NULL OR expires_at > NOW()", metrics.ActiveUsersTotal},
	} {
		n, err := countQuery(ctx, db, g.query)
		if err != nil {
			logger.WithError(err).Warn("gauge refresh query failed")
			continue
		}
		g.gauge.Set(float64(n))
	}
}

func countQuery(ctx context.Context, db *sql.DB, query string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}
