package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics exports database connection pool statistics over the global
// meter provider. Domain counters live in Metrics and go out through the
// Prometheus endpoint; these instruments exist for the OTLP pipeline, which
// has no scrape endpoint to read the pool from.
type OTelMetrics struct {
	dbConnectionsInUse metric.Int64Gauge
	dbConnectionsIdle  metric.Int64Gauge
	dbConnectionsMax   metric.Int64Gauge
}

// NewOTelMetrics builds the pool instruments on the global meter provider.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/mediacms-io/mediacms-go")

	m := &OTelMetrics{}
	var err error

	m.dbConnectionsInUse, err = meter.Int64Gauge(
		"db.connections.in_use",
		metric.WithDescription("Database connections currently in use"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating db.connections.in_use gauge: %w", err)
	}

	m.dbConnectionsIdle, err = meter.Int64Gauge(
		"db.connections.idle",
		metric.WithDescription("Idle database connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating db.connections.idle gauge: %w", err)
	}

	m.dbConnectionsMax, err = meter.Int64Gauge(
		"db.connections.max",
		metric.WithDescription("Maximum size of the database connection pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating db.connections.max gauge: %w", err)
	}

	return m, nil
}

// UpdateDBConnectionStats records a snapshot of the connection pool. Called
// periodically from the stats loop; each call replaces the previous values.
func (m *OTelMetrics) UpdateDBConnectionStats(ctx context.Context, inUse, idle, max int) {
	m.dbConnectionsInUse.Record(ctx, int64(inUse))
	m.dbConnectionsIdle.Record(ctx, int64(idle))
	m.dbConnectionsMax.Record(ctx, int64(max))
}
