package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	SessionSteps    prometheus.Histogram
	SessionsRunning prometheus.Gauge

	PartyFailuresTotal  *prometheus.CounterVec
	PartyActionDuration *prometheus.HistogramVec
	PartiesLive         prometheus.Gauge

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	SessionsRejectedTotal prometheus.Counter
}

// New регистрирует метрики в reg; nil - глобальный реестр
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	m := &Metrics{
		SessionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gwbridge_sessions_total",
				Help: "Total number of finished negotiation sessions",
			},
			[]string{"status"},
		),
		SessionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gwbridge_session_duration_seconds",
				Help:    "Negotiation session duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 180},
			},
		),
		SessionSteps: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gwbridge_session_steps",
				Help:    "Number of mechanism steps a session took",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		SessionsRunning: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "gwbridge_sessions_running",
				Help: "Number of sessions currently running",
			},
		),

		PartyFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gwbridge_party_failures_total",
				Help: "Total number of party failures seen by the adapter",
			},
			[]string{"kind"},
		),
		PartyActionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gwbridge_party_action_duration_seconds",
				Help:    "Time a party took to answer YourTurn",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
			},
			[]string{"action"},
		),
		PartiesLive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "gwbridge_parties_live",
				Help: "Number of party event loops currently running",
			},
		),

		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gwbridge_profile_cache_hits_total",
				Help: "Total number of profile cache hits",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gwbridge_profile_cache_misses_total",
				Help: "Total number of profile cache misses",
			},
		),

		SessionsRejectedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gwbridge_party_sessions_rejected_total",
				Help: "Total number of party sessions refused by the rate limiter",
			},
		),
	}

	return m
}

// Handler отдает метрики из g; nil - глобальный реестр
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSession(status string, steps int, duration time.Duration) {
	m.SessionsTotal.WithLabelValues(status).Inc()
	m.SessionSteps.Observe(float64(steps))
	m.SessionDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncSessionsRunning() {
	m.SessionsRunning.Inc()
}

func (m *Metrics) DecSessionsRunning() {
	m.SessionsRunning.Dec()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordSessionRejected() {
	m.SessionsRejectedTotal.Inc()
}

// дальше - bridge.Observer

func (m *Metrics) PartyStarted() {
	m.PartiesLive.Inc()
}

func (m *Metrics) PartyStopped() {
	m.PartiesLive.Dec()
}

func (m *Metrics) PartyFailure(kind string) {
	m.PartyFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) PartyAction(action string, latency time.Duration) {
	m.PartyActionDuration.WithLabelValues(action).Observe(latency.Seconds())
}
