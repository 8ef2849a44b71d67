package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncCompensationFailure("reject")
	m.ObserveReplica("redis", "upsert", errors.New("boom"), time.Millisecond)
	m.AddReconcileActions("deactivate_orphan", 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestMetricsCountersAndExposition(t *testing.T) {
	m := NewMetrics()
	m.IncCompensationFailure("lesson.reject")
	m.IncCompensationFailure("lesson.reject")
	m.ObserveReplica("pebble", "upsert", errors.New("disk"), time.Millisecond)
	m.AddReconcileActions("republish", 0)

	if got := testutil.ToFloat64(m.compensationFailures.WithLabelValues("lesson.reject")); got != 2 {
		t.Fatalf("compensation failures: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.replicaWrites.WithLabelValues("pebble", "upsert", "error")); got != 1 {
		t.Fatalf("replica errors: want=1 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nbp_compensation_failures_total") {
		t.Fatalf("exposition missing compensation counter")
	}
	if strings.Contains(rec.Body.String(), `action="republish"`) {
		t.Fatalf("zero reconcile adds must not create a series")
	}
}
