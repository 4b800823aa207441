package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_playback_finished_total",
		Help: "Alert clips that reached a terminal event, by reason",
	}, []string{"reason"})

	metricDurationMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_playback_duration_ms",
		Help:    "Time from clip start to terminal event (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.8, 10),
	})

	gaugeQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_queue_depth",
		Help: "Alert requests waiting behind the active clip",
	})

	gaugePlaying = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_playing",
		Help: "1 while an alert clip is playing",
	})

	metricStaleEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_playback_stale_events_total",
		Help: "Terminal events ignored because their clip was no longer active",
	})
)
