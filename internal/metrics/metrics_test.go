package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("api", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("api", "GET", 200, 20*time.Millisecond)
	m.ObserveRequest("api", "POST", 0, time.Millisecond)
	m.ObserveRefresh(true, 3)
	m.ObserveRefresh(false, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("api", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("api", "POST", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("failure")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("api", "GET", 200, time.Millisecond)
		m.ObserveRefresh(true, 1)
	})
}
