package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New(nil)
	m.ObserveRequest("GET /dashboard", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest("GET /dashboard", http.MethodGet, http.StatusUnauthorized, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET /dashboard", "GET", "200")); got != 1 {
		t.Errorf("200 requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authRejections.WithLabelValues("401_unauthorized")); got != 1 {
		t.Errorf("auth rejections = %v, want 1", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New(func() int64 { return 3 })
	m.TaskCompletion(true)
	m.TaskCompletion(true)
	m.StreakTransition("extended")
	m.SprintExtended(4, 1)

	if got := testutil.ToFloat64(m.taskCompletions.WithLabelValues("true")); got != 2 {
		t.Errorf("completions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.challengesInserted); got != 4 {
		t.Errorf("inserted = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.realtimeDropped); got != 3 {
		t.Errorf("dropped = %v, want 3", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("x", "GET", 200, time.Second)
	m.TaskCompletion(false)
	m.StreakTransition("reset")
	m.SprintExtended(1, 1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.StreakTransition("started")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `skillsprint_streak_transitions_total{transition="started"} 1`) {
		t.Error("expected streak transition counter in output")
	}
}
