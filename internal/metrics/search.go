package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search service and mirror Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esmirror",
			Name:      "search_requests_total",
			Help:      "Total number of requests issued to the search service",
		},
		[]string{"op", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "esmirror",
			Name:      "search_request_duration_seconds",
			Help:      "Search service request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	MirrorDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "esmirror",
			Name:      "mirror_documents",
			Help:      "Document ids tracked by the local mirror",
		},
		[]string{"index", "type"},
	)

	LoadedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "esmirror",
			Name:      "loaded_records_total",
			Help:      "Records fed through bulk loads",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search and mirror metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(MirrorDocuments)
	prometheus.MustRegister(LoadedRecordsTotal)
	searchMetricsRegistered = true
}

// StatusLabel buckets an HTTP status code into the label used by SearchRequestsTotal.
// Zero means the request never produced a response.
func StatusLabel(code int) string {
	switch {
	case code == 0:
		return "transport_error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
