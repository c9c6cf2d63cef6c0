// Package observability holds the process-wide Prometheus collectors and the
// logrus logger setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engigrow_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AuthFailures counts Access Gate rejections by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_auth_failures_total",
		Help: "Total number of rejected authentications by reason",
	}, []string{"reason"})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engigrow_posts_created_total",
		Help: "Total number of posts created",
	})

	CommentsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engigrow_comments_appended_total",
		Help: "Total number of comments appended to posts",
	})

	// LikeToggles counts like toggles by requested state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_like_toggles_total",
		Help: "Total number of like toggles by requested state",
	}, []string{"liked"})

	// FeedCacheResults counts feed cache lookups by result (hit, miss).
	FeedCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_feed_cache_results_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})

	// CacheErrors counts Redis errors by command.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_cache_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// BackupRuns counts snapshot backup runs by result.
	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engigrow_backup_runs_total",
		Help: "Total number of snapshot backup runs by result",
	}, []string{"result"})

	BackupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "engigrow_backup_duration_seconds",
		Help:    "Snapshot backup duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
