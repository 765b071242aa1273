package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	t.Run("creates and registers all metrics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		if metrics == nil {
			t.Fatal("NewMetrics returned nil")
		}

		if metrics.HTTPRequestsTotal == nil {
			t.Error("HTTPRequestsTotal is nil")
		}
		if metrics.PolicyDecisionsTotal == nil {
			t.Error("PolicyDecisionsTotal is nil")
		}
		if metrics.ListingQueriesTotal == nil {
			t.Error("ListingQueriesTotal is nil")
		}
		if metrics.SearchQueriesTotal == nil {
			t.Error("SearchQueriesTotal is nil")
		}
		if metrics.BulkActionsTotal == nil {
			t.Error("BulkActionsTotal is nil")
		}
		if metrics.CacheHitsTotal == nil {
			t.Error("CacheHitsTotal is nil")
		}
		if metrics.DBConnectionsActive == nil {
			t.Error("DBConnectionsActive is nil")
		}
		if metrics.MediaTotal == nil {
			t.Error("MediaTotal is nil")
		}
	})

	t.Run("panics on double registration", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		NewMetrics(registry)

		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic on duplicate registration")
			}
		}()
		NewMetrics(registry)
	})
}

func TestPolicyDecisionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.PolicyDecisionsTotal.WithLabelValues("view", "allow").Inc()
	metrics.PolicyDecisionsTotal.WithLabelValues("view", "deny").Inc()
	metrics.PolicyDecisionsTotal.WithLabelValues("view", "deny").Inc()

	expected := `
		# HELP mediacms_policy_decisions_total Total number of visibility policy decisions
		# TYPE mediacms_policy_decisions_total counter
		mediacms_policy_decisions_total{check="view",outcome="allow"} 1
		mediacms_policy_decisions_total{check="view",outcome="deny"} 2
	`
	if err := testutil.CollectAndCompare(metrics.PolicyDecisionsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric output: %v", err)
	}
}

func TestBulkActionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.BulkActionsTotal.WithLabelValues("delete").Inc()
	metrics.BulkItemOutcomesTotal.WithLabelValues("delete", "succeeded").Add(2)
	metrics.BulkItemOutcomesTotal.WithLabelValues("delete", "excluded").Inc()

	expected := `
		# HELP mediacms_bulk_item_outcomes_total Per-item outcomes of bulk actions
		# TYPE mediacms_bulk_item_outcomes_total counter
		mediacms_bulk_item_outcomes_total{action="delete",outcome="excluded"} 1
		mediacms_bulk_item_outcomes_total{action="delete",outcome="succeeded"} 2
	`
	if err := testutil.CollectAndCompare(metrics.BulkItemOutcomesTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric output: %v", err)
	}
}

func TestSearchQueryMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SearchQueriesTotal.WithLabelValues("prefix").Inc()
	metrics.SearchQueryDuration.WithLabelValues("prefix").Observe(0.01)

	if got := testutil.ToFloat64(metrics.SearchQueriesTotal.WithLabelValues("prefix")); got != 1 {
		t.Errorf("SearchQueriesTotal = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.SearchQueryDuration); got != 1 {
		t.Errorf("SearchQueryDuration series count = %d, want 1", got)
	}
}

func TestBusinessGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.MediaTotal.Set(42)
	metrics.ListableTotal.Set(30)
	metrics.PlaylistsTotal.Set(7)
	metrics.ActiveUsersTotal.Set(3)

	if got := testutil.ToFloat64(metrics.MediaTotal); got != 42 {
		t.Errorf("MediaTotal = %v, want 42", got)
	}
	if got := testutil.ToFloat64(metrics.ListableTotal); got != 30 {
		t.Errorf("ListableTotal = %v, want 30", got)
	}
	if got := testutil.ToFloat64(metrics.PlaylistsTotal); got != 7 {
		t.Errorf("PlaylistsTotal = %v, want 7", got)
	}
	if got := testutil.ToFloat64(metrics.ActiveUsersTotal); got != 3 {
		t.Errorf("ActiveUsersTotal = %v, want 3", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/99", strings.NewReader("x"))
	req.ContentLength = 1
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/media/99", "404"))
	if got != 1 {
		t.Errorf("HTTPRequestsTotal = %v, want 1", got)
	}
	if count := testutil.CollectAndCount(metrics.HTTPRequestDuration); count != 1 {
		t.Errorf("HTTPRequestDuration series count = %d, want 1", count)
	}
	if count := testutil.CollectAndCount(metrics.HTTPRequestSize); count != 1 {
		t.Errorf("HTTPRequestSize series count = %d, want 1", count)
	}
}

func TestHTTPMetricsMiddlewareDefaultStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if got != 1 {
		t.Errorf("HTTPRequestsTotal = %v, want 1 with implicit 200", got)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.MediaTotal.Set(5)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), "mediacms_media_total 5") {
		t.Errorf("metrics output missing mediacms_media_total gauge:\n%s", body)
	}
}
