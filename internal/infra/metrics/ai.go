package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsLatencyMs,
		aiRetryWaits,
		aiQuotaFailures,
	)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "Model call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	aiRetryWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retry_waits_total",
			Help: "Count of retry backoff waits per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiQuotaFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_quota_failures_total",
			Help: "Count of non-retriable quota failures per provider/model.",
		},
		[]string{"provider", "model"},
	)
)

func ObserveModelCall(provider, model string, latencyMs int, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func RetryWait(provider, model string) {
	aiRetryWaits.WithLabelValues(norm(provider), norm(model)).Inc()
}

func QuotaFailure(provider, model string) {
	aiQuotaFailures.WithLabelValues(norm(provider), norm(model)).Inc()
}
