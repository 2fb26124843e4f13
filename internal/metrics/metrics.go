// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	requestDuration  *prometheus.HistogramVec
	sessionsCreated  *prometheus.CounterVec
	sessionStatus    *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	examSubmissions  prometheus.Counter
	examScores       prometheus.Histogram
	signalsPublished prometheus.Counter
}

// New builds a private registry so tests can create as many servers as
// they like without duplicate registration panics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teacherconnect",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teacherconnect",
			Name:      "sessions_created_total",
			Help:      "Sessions created, by initial status.",
		}, []string{"status"}),
		sessionStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teacherconnect",
			Name:      "session_transitions_total",
			Help:      "Session status transitions, by target status.",
		}, []string{"status"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teacherconnect",
			Name:      "exam_assignments_total",
			Help:      "Exam assignment attempts, by outcome.",
		}, []string{"outcome"}),
		examSubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "teacherconnect",
			Name:      "exam_submissions_total",
			Help:      "Exams submitted and graded.",
		}),
		examScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "teacherconnect",
			Name:      "exam_percentage_score",
			Help:      "Distribution of graded exam percentages.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		signalsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "teacherconnect",
			Name:      "signals_published_total",
			Help:      "Signaling events relayed into session rooms.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.sessionsCreated,
		m.sessionStatus,
		m.assignments,
		m.examSubmissions,
		m.examScores,
		m.signalsPublished,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled with the chi route pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) SessionCreated(status string) {
	m.sessionsCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) SessionTransition(status string) {
	m.sessionStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) AssignmentsRecorded(assigned, failed int) {
	m.assignments.WithLabelValues("assigned").Add(float64(assigned))
	m.assignments.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ExamSubmitted(percentage int) {
	m.examSubmissions.Inc()
	m.examScores.Observe(float64(percentage))
}

func (m *Metrics) SignalPublished() {
	m.signalsPublished.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps server-sent event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
