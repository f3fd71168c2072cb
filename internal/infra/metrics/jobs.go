package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsByStatus,
		jobsSwept,
		jobDurationSec,
	)
}

var (
	jobsByStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimation_jobs_total",
			Help: "Count of estimation jobs reaching each status.",
		},
		[]string{"status"},
	)

	jobsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "estimation_jobs_swept_total",
			Help: "Count of expired jobs removed by the TTL sweeper.",
		},
	)

	jobDurationSec = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "estimation_job_duration_seconds",
			Help:    "Wall-clock duration of completed estimation jobs.",
			Buckets: []float64{5, 15, 30, 60, 120, 240, 480, 900},
		},
	)
)

func JobStatus(status string) {
	jobsByStatus.WithLabelValues(norm(status)).Inc()
}

func JobsSwept(n int) {
	jobsSwept.Add(float64(n))
}

func ObserveJobDuration(seconds float64) {
	jobDurationSec.Observe(seconds)
}
