package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	builds      *prometheus.CounterVec
	reports     *prometheus.CounterVec
	invalidated prometheus.Counter
	completed   prometheus.Counter
	lockWait    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "builds_total",
			Help:      "Brackets built, by forced flag.",
		}, []string{"forced"}),
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "reports_total",
			Help:      "Result reports, by outcome.",
		}, []string{"outcome"}),
		invalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "invalidated_results_total",
			Help:      "Downstream results deleted by authoritative corrections.",
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "tournaments_completed_total",
			Help:      "Tournaments that reached a champion.",
		}),
		lockWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bracket",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for bracket locks.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"op"}),
	}
}

func (m *Metrics) Build(forced bool) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(strconv.FormatBool(forced)).Inc()
}

// Report counts one report outcome: applied, unchanged, corrected or rejected.
func (m *Metrics) Report(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Invalidated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidated.Add(float64(n))
}

func (m *Metrics) Completed() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func (m *Metrics) LockWait(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(op).Observe(d.Seconds())
}
