package poll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_fetch_total",
		Help: "Pending-list fetches by outcome",
	}, []string{"status"})
	metricFetchMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poll_fetch_ms",
		Help:    "Pending-list fetch latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(25, 2, 10),
	})
)
