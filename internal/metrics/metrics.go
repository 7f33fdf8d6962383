package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts generation cycles by how they settled.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrgen",
			Name:      "cycles_total",
			Help:      "Generation cycles by outcome",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qrgen",
			Name:      "request_duration_seconds",
			Help:      "Remote generation request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"result"},
	)

	ImageBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qrgen",
			Name:      "image_bytes",
			Help:      "Size of generated images",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrgen",
			Name:      "downloads_total",
			Help:      "Image downloads by status",
		},
		[]string{"status"},
	)

	// LiveHandles is 0 or 1; anything higher means a handle leaked.
	LiveHandles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "qrgen",
			Name:      "live_handles",
			Help:      "Image handles currently held by the session",
		},
	)
)
