package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the session runtime.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
	SessionsBooted   *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	TimerExpirations prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A fresh prometheus.NewRegistry()
// keeps tests isolated from the process-wide default.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_active",
			Help: "Number of sessions currently held by the runtime",
		}),
		SessionsBooted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_boots_total",
				Help: "Sessions booted, by mode and freshness",
			},
			[]string{"mode", "fresh"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_submissions_total",
				Help: "Finished submissions, by mode, trigger and outcome",
			},
			[]string{"mode", "trigger", "outcome"},
		),
		TimerExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_timer_expirations_total",
			Help: "Countdowns that reached zero",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.ActiveSessions,
		m.SessionsBooted,
		m.Submissions,
		m.TimerExpirations,
	)
	return m
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HTTPHandler exposes the registry outside gin.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
