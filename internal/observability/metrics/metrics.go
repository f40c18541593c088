package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat lifecycle. All
// observe methods are nil-receiver safe so callers can skip wiring.
type ChatMetrics struct {
	verdictTotal     *prometheus.CounterVec
	sessionsTotal    *prometheus.CounterVec
	bootstrapLatency prometheus.Histogram
	upstreamErrors   *prometheus.CounterVec
	pollsTotal       prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		verdictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberchat",
			Subsystem: "eligibility",
			Name:      "verdict_total",
			Help:      "Eligibility verdicts by reason",
		}, []string{"reason"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberchat",
			Subsystem: "sessions",
			Name:      "total",
			Help:      "Chat session lifecycle events",
		}, []string{"event", "status"}),
		bootstrapLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "memberchat",
			Subsystem: "bootstrap",
			Name:      "duration_seconds",
			Help:      "Duration of the sequential bootstrap",
			Buckets:   prometheus.DefBuckets,
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberchat",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Upstream call failures by service",
		}, []string{"service"}),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memberchat",
			Subsystem: "hours",
			Name:      "polls_total",
			Help:      "Business-hours recheck polls",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.verdictTotal, m.sessionsTotal, m.bootstrapLatency, m.upstreamErrors, m.pollsTotal)
	return m
}

func (m *ChatMetrics) ObserveVerdict(reason string) {
	if m == nil {
		return
	}
	m.verdictTotal.WithLabelValues(reason).Inc()
}

func (m *ChatMetrics) ObserveSession(event, status string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(event, status).Inc()
}

func (m *ChatMetrics) ObserveBootstrap(seconds float64) {
	if m == nil {
		return
	}
	m.bootstrapLatency.Observe(seconds)
}

func (m *ChatMetrics) ObserveUpstreamError(service string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(service).Inc()
}

func (m *ChatMetrics) ObserveHoursPoll() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}
