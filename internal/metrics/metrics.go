package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribeflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeflow_generations_total",
			Help: "Total number of AI generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scribeflow_quota_rejections_total",
			Help: "Generation requests rejected by the daily quota gate.",
		},
	)

	UpstreamRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scribeflow_upstream_request_duration_seconds",
			Help:    "Model provider request duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	TokensConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scribeflow_tokens_consumed_total",
			Help: "Total tokens consumed across all generations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		QuotaRejectionsTotal,
		UpstreamRequestDuration,
		TokensConsumedTotal,
	)
}
