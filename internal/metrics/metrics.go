package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiobook_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Auth Metrics
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_signups_total",
			Help: "Total number of account signups",
		},
		[]string{"provider"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"provider", "status"},
	)

	// Playback Metrics
	PlaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiobook_plays_total",
			Help: "Total number of books opened for playback",
		},
	)

	CompletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiobook_completions_total",
			Help: "Total number of books completed",
		},
	)

	// Upload Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"kind", "status"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audiobook_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Email Metrics
	EmailJobsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_email_jobs_published_total",
			Help: "Total number of email jobs published",
		},
		[]string{"type"},
	)

	EmailJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_email_jobs_processed_total",
			Help: "Total number of email jobs processed by the worker",
		},
		[]string{"type", "status"},
	)

	EmailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiobook_email_queue_depth",
			Help: "Number of email jobs waiting in the queue",
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiobook_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audiobook_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiobook_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordSignup records an account creation
func RecordSignup(provider string) {
	SignupsTotal.WithLabelValues(provider).Inc()
}

// RecordLogin records a login attempt
func RecordLogin(provider, status string) {
	LoginsTotal.WithLabelValues(provider, status).Inc()
}

// RecordPlay records a book opened for playback
func RecordPlay() {
	PlaysTotal.Inc()
}

// RecordCompletion records a finished book
func RecordCompletion() {
	CompletionsTotal.Inc()
}

// RecordUpload records an upload attempt
func RecordUpload(kind, status string, sizeBytes int64) {
	UploadsTotal.WithLabelValues(kind, status).Inc()
	if sizeBytes > 0 {
		UploadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordEmailPublished records a queued email job
func RecordEmailPublished(jobType string) {
	EmailJobsPublished.WithLabelValues(jobType).Inc()
}

// RecordEmailProcessed records a worker delivery attempt
func RecordEmailProcessed(jobType, status string) {
	EmailJobsProcessed.WithLabelValues(jobType, status).Inc()
}

// RecordStorageOperation records storage operation metrics
func RecordStorageOperation(operation, status string, duration float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDatabaseOperation records database operation metrics
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit/miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error occurrence
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
