package listing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

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

var listingTracer = otel.Tracer("mediacms/listing/service")

// Request describes one page of a listing feed.
type Request struct {
	Scope    Scope
	AuthorID int64 // only for ScopeAuthor
	Limit    int
	Offset   int
}

// Page is one page of listing results.
type Page struct {
	Items  []*media.Media `json:"results"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Service executes listing requests against a read replica.
type Service struct {
	db      *sql.DB
	builder *Builder
	cfg     policy.Configuration
	metrics *observability.Metrics
}

// NewService creates a listing service. db should be a read replica.
func NewService(db *sql.DB, builder *Builder, cfg policy.Configuration) *Service {
	return &Service{db: db, builder: builder, cfg: cfg}
}

// SetMetrics attaches per-scope query counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// List returns one page of media visible to the principal under the
// requested scope, newest first.
func (s *Service) List(ctx context.Context, p *identity.Principal, req Request) (*Page, error) {
	ctx, span := listingTracer.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("scope", string(req.Scope)),
			attribute.Int("limit", req.Limit),
			attribute.Int("offset", req.Offset),
		),
	)
	defer span.End()

	if s.metrics != nil {
		s.metrics.ListingQueriesTotal.WithLabelValues(string(req.Scope)).Inc()
	}

	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > s.cfg.ResultCap {
		req.Limit = s.cfg.ResultCap
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	pred, orderBy, err := s.builder.Build(ctx, p, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build listing predicate")
		return nil, err
	}

	compiler := query.NewCompiler()
	where := "TRUE"
	if pred != nil {
		where, err = compiler.Compile(pred)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to compile listing predicate")
			return nil, err
		}
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + media.SelectColumns + ` FROM media WHERE `)
	sb.WriteString(where)
	sb.WriteString(` ORDER BY ` + orderBy)
	sb.WriteString(` LIMIT ` + compiler.NextArg(req.Limit))
	sb.WriteString(` OFFSET ` + compiler.NextArg(req.Offset))

	rows, err := s.db.QueryContext(ctx, sb.String(), compiler.Args()...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to execute listing")
		return nil, fmt.Errorf("failed to execute listing: %w", err)
	}
	defer rows.Close()

	items := make([]*media.Media, 0, req.Limit)
	for rows.Next() {
		m, err := media.ScanRow(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error iterating listing rows")
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(items)))
	span.SetStatus(codes.Ok, "listing completed")

	return &Page{Items: items, Limit: req.Limit, Offset: req.Offset}, nil
}
