package loop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_scans_total",
		Help: "Order batches scanned for cuts",
	})

	metricSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_submitted_total",
		Help: "Alert requests handed to the playback engine",
	})

	metricSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_skipped_total",
		Help: "Cut orders skipped during a scan",
	}, []string{"reason"}) // played, queued

	metricResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_resets_total",
		Help: "Operator queue clears and session resets",
	}, []string{"kind"})
)
