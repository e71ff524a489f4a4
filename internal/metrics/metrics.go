package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection metrics
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercury_detections_total",
			Help: "Total number of detection requests by verdict",
		},
		[]string{"verdict"},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mercury_detection_duration_seconds",
			Help:    "Duration of detection evaluation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Antibody submission metrics
	AntibodiesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercury_antibodies_submitted_total",
			Help: "Total antibody submissions by outcome (created, duplicate, rejected)",
		},
		[]string{"outcome"},
	)

	AntibodiesMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercury_antibodies_merged_total",
			Help: "Total antibodies merged from the network",
		},
	)

	// Registry storage metrics
	StorageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mercury_registry_storage_duration_seconds",
			Help:    "Duration of registry storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercury_registry_storage_errors_total",
			Help: "Total number of registry storage errors",
		},
	)

	// Network sharing metrics
	SharesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercury_shares_published_total",
			Help: "Total antibodies published to the network",
		},
	)

	ShareErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercury_share_errors_total",
			Help: "Total failures publishing antibodies to the network",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mercury_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"agent"},
	)

	// Dedup cache metrics
	DedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mercury_dedup_cache_hits_total",
			Help: "Total submissions short-circuited by the dedup cache",
		},
	)
)
