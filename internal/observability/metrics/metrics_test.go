package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveVerdict("eligible")
	m.ObserveVerdict("eligible")
	m.ObserveVerdict("plan-not-eligible")
	m.ObserveSession("open", "ok")
	m.ObserveSession("end", "error")
	m.ObserveBootstrap(0.25)
	m.ObserveUpstreamError("plans")
	m.ObserveHoursPoll()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.verdictTotal.WithLabelValues("eligible")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.verdictTotal.WithLabelValues("plan-not-eligible")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sessionsTotal.WithLabelValues("open", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamErrors.WithLabelValues("plans")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pollsTotal))
}

func TestChatMetricsNilReceiverSafe(t *testing.T) {
	var m *ChatMetrics
	assert.NotPanics(t, func() {
		m.ObserveVerdict("eligible")
		m.ObserveSession("open", "ok")
		m.ObserveBootstrap(0.1)
		m.ObserveUpstreamError("members")
		m.ObserveHoursPoll()
	})
}
