package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenTotal counts remote handle opens by result (success|failure).
	OpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sftpfs_open_total",
			Help: "Total number of remote file open attempts",
		},
		[]string{"result"},
	)

	// AuthAttempts records authentication attempts by method and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sftpfs_auth_attempts_total",
			Help: "Total number of ssh authentication attempts",
		},
		[]string{"method", "result"},
	)

	// BytesRead counts bytes returned to callers by remote reads.
	BytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftpfs_bytes_read_total",
			Help: "Total number of bytes read from remote files",
		},
	)

	// OpenHandles tracks remote handles that have not been closed yet.
	OpenHandles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sftpfs_open_handles",
			Help: "Number of open remote file handles",
		},
	)

	// OpenDuration measures the full connect, authenticate and open sequence.
	OpenDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sftpfs_open_duration_seconds",
			Help:    "Time taken to open a remote file",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sftpfs_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
