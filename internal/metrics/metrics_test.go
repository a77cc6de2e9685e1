package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Build(false)
	m.Build(true)
	m.Build(true)
	m.Report("applied")
	m.Invalidated(2)
	m.Invalidated(0)
	m.Completed()
	m.LockWait("report", 3*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.builds.WithLabelValues("false")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.builds.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reports.WithLabelValues("applied")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.invalidated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.completed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.lockWait))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Build(true)
		m.Report("rejected")
		m.Invalidated(1)
		m.Completed()
		m.LockWait("build", time.Second)
	})
}
