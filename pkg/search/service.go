package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/query"
)

var searchTracer = otel.Tracer("mediacms/search/service")

// Request is one search request. Counted selects the exact-pagination
// path; the fast path skips the COUNT query for feeds where an exact total
// is not meaningful.
type Request struct {
	Query   string
	Facets  Facets
	Sort    Sort
	Counted bool
	Limit   int
	Offset  int
}

// Page is one page of search results. Total is only meaningful when
// Counted is true.
type Page struct {
	Items   []*media.Media `json:"results"`
	Total   int            `json:"total_count"`
	Counted bool           `json:"counted"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// Service executes search requests against a read replica.
type Service struct {
	db      *sql.DB
	builder *Builder
	cfg     policy.Configuration
	metrics *observability.Metrics
}

// NewService creates a search service. db should be a read replica.
func NewService(db *sql.DB, builder *Builder, cfg policy.Configuration) *Service {
	return &Service{db: db, builder: builder, cfg: cfg}
}

// SetMetrics attaches per-strategy query counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// observe counts one completed search under its strategy label.
func (s *Service) observe(strategy string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(strategy).Inc()
	s.metrics.SearchQueryDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// Search returns one page of media matching the query and facets, visible
// to the principal. An empty query with no facets short-circuits to an
// empty page without touching storage.
func (s *Service) Search(ctx context.Context, p *identity.Principal, req Request) (*Page, error) {
	ctx, span := searchTracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", req.Query),
			attribute.Bool("counted", req.Counted),
			attribute.Int("limit", req.Limit),
			attribute.Int("offset", req.Offset),
		),
	)
	defer span.End()

	start := time.Now()

	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > s.cfg.ResultCap {
		req.Limit = s.cfg.ResultCap
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if strings.TrimSpace(req.Query) == "" && req.Facets.Empty() {
		span.AddEvent("empty query short-circuit")
		span.SetStatus(codes.Ok, "search completed")
		s.observe("empty", time.Since(start))
		return &Page{Items: []*media.Media{}, Counted: req.Counted, Limit: req.Limit, Offset: req.Offset}, nil
	}

	strategy := "faceted"
	if strings.TrimSpace(req.Query) != "" {
		strategy = "fulltext"
	}

	pred, err := s.builder.Build(ctx, p, req.Query, req.Facets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build search predicate")
		return nil, err
	}

	compiler := query.NewCompiler()
	where := "TRUE"
	if pred != nil {
		where, err = compiler.Compile(pred)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to compile search predicate")
			return nil, err
		}
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + media.SelectColumns + ` FROM media WHERE `)
	sb.WriteString(where)
	sb.WriteString(` ORDER BY ` + req.Sort.OrderBy())
	sb.WriteString(` LIMIT ` + compiler.NextArg(req.Limit))
	sb.WriteString(` OFFSET ` + compiler.NextArg(req.Offset))

	rows, err := s.db.QueryContext(ctx, sb.String(), compiler.Args()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to execute search")
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer rows.Close()

	items := make([]*media.Media, 0, req.Limit)
	for rows.Next() {
		m, err := media.ScanRow(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error iterating search rows")
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}

	page := &Page{Items: items, Counted: req.Counted, Limit: req.Limit, Offset: req.Offset}

	if req.Counted {
		// Same predicate, fresh argument numbering.
		page.Total, err = s.count(ctx, pred)
		if err != nil {
			// A count failure degrades to the page size rather than failing
			// the request.
			span.AddEvent("failed to count search results",
				trace.WithAttributes(attribute.String("error", err.Error())),
			)
			page.Total = len(items)
		}
	}

	span.SetAttributes(
		attribute.Int("result_count", len(items)),
		attribute.Int("total_count", page.Total),
	)
	span.SetStatus(codes.Ok, "search completed")
	s.observe(strategy, time.Since(start))

	return page, nil
}

func (s *Service) count(ctx context.Context, pred query.Predicate) (int, error) {
	compiler := query.NewCompiler()
	where := "TRUE"
	if pred != nil {
		var err error
		where, err = compiler.Compile(pred)
		if err != nil {
			return 0, err
		}
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE `+where, compiler.Args()...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count search results: %w", err)
	}
	return total, nil
}
