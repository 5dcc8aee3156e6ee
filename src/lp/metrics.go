package lp

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "lp"

var (
	solveCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "solves_total",
			Help:      "Count of LP/MILP solves by backend and outcome status.",
		},
		[]string{"backend", "status"},
	)
	solveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "solve_duration_seconds",
			Help:      "Wall time of single LP/MILP solves by backend.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		},
		[]string{"backend"},
	)
)

var registerMetrics sync.Once

// RegisterMetrics registers the solver metrics with reg. Later calls are no-ops.
func RegisterMetrics(reg prometheus.Registerer) {
	registerMetrics.Do(func() {
		reg.MustRegister(solveCounter)
		reg.MustRegister(solveDuration)
	})
}

func recordSolve(backend string, sol *Solution, err error, elapsed time.Duration) {
	status := "backend_error"
	if err == nil && sol != nil {
		status = sol.Status.String()
	}
	solveCounter.WithLabelValues(backend, status).Inc()
	solveDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
