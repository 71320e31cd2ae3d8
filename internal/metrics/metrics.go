// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authRejections      *prometheus.CounterVec
	taskCompletions     *prometheus.CounterVec
	streakTransitions   *prometheus.CounterVec
	challengesInserted  prometheus.Counter
	challengesSkipped   prometheus.Counter
	realtimeDropped     prometheus.CounterFunc
}

// New registers every collector on a fresh registry. dropped, if non-nil,
// reports how many realtime events were discarded.
func New(dropped func() int64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		authRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_rejections_total",
				Help: "Total number of rejected requests",
			},
			[]string{"reason"},
		),
		taskCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillsprint_task_completions_total",
				Help: "Recorded task completion changes",
			},
			[]string{"completed"},
		),
		streakTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillsprint_streak_transitions_total",
				Help: "Streak updates by transition",
			},
			[]string{"transition"},
		),
		challengesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillsprint_extend_challenges_inserted_total",
			Help: "Challenges created by sprint extensions",
		}),
		challengesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillsprint_extend_challenges_skipped_total",
			Help: "Sprint extension days that already had a challenge",
		}),
	}
	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.authRejections,
		m.taskCompletions,
		m.streakTransitions,
		m.challengesInserted,
		m.challengesSkipped,
	)

	if dropped != nil {
		m.realtimeDropped = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "skillsprint_realtime_events_dropped_total",
			Help: "Realtime events discarded because a subscriber was too slow",
		}, func() float64 { return float64(dropped()) })
		reg.MustRegister(m.realtimeDropped)
	}
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveRequest records one served request
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())

	switch status {
	case http.StatusUnauthorized:
		m.authRejections.WithLabelValues("401_unauthorized").Inc()
	case http.StatusForbidden:
		m.authRejections.WithLabelValues("403_forbidden").Inc()
	case http.StatusTooManyRequests:
		m.authRejections.WithLabelValues("429_rate_limited").Inc()
	}
}

// TaskCompletion counts a recorded completion or un-completion
func (m *Metrics) TaskCompletion(completed bool) {
	if m == nil {
		return
	}
	m.taskCompletions.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// StreakTransition counts a streak update by its outcome
func (m *Metrics) StreakTransition(transition string) {
	if m == nil {
		return
	}
	m.streakTransitions.WithLabelValues(transition).Inc()
}

// SprintExtended counts the challenge rows an extension created and skipped
func (m *Metrics) SprintExtended(inserted, skipped int) {
	if m == nil {
		return
	}
	m.challengesInserted.Add(float64(inserted))
	m.challengesSkipped.Add(float64(skipped))
}
