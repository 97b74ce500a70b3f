// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ActiveSessions     prometheus.Gauge
	ActiveSubscribers  prometheus.Gauge
	TicksTotal         prometheus.Counter
	FetchFailures      *prometheus.CounterVec
	EvictedSubscribers prometheus.Counter
	TickLatency        prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions with a running stream loop",
		}),
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscribers",
			Help:      "Number of live websocket subscribers",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of completed stream loop ticks",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Per-source failed or rejected fetches",
		}, []string{"source"}),
		EvictedSubscribers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_subscribers_total",
			Help:      "Subscribers removed after a failed delivery",
		}),
		TickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_latency_seconds",
			Help:      "Stream loop tick duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ActiveSessions,
		m.ActiveSubscribers,
		m.TicksTotal,
		m.FetchFailures,
		m.EvictedSubscribers,
		m.TickLatency,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) SetActiveSessions(count int) {
	m.metrics.ActiveSessions.Set(float64(count))
}

func (m *Monitor) IncSubscribers() {
	m.metrics.ActiveSubscribers.Inc()
}

func (m *Monitor) DecSubscribers() {
	m.metrics.ActiveSubscribers.Dec()
}

func (m *Monitor) IncTicks() {
	m.metrics.TicksTotal.Inc()
}

func (m *Monitor) IncFetchFailure(source string) {
	m.metrics.FetchFailures.WithLabelValues(source).Inc()
}

func (m *Monitor) IncEvicted() {
	m.metrics.EvictedSubscribers.Inc()
}

func (m *Monitor) ObserveTickLatency(duration time.Duration) {
	m.metrics.TickLatency.Observe(duration.Seconds())
}
