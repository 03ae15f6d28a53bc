// Package observability provides application metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AccountsRegistered counts successful registrations.
	AccountsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_accounts_registered_total",
		Help: "Total number of registered accounts",
	})

	// LoginAttempts counts login attempts by result ("success" or "failure").
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// PostsPublished counts published posts.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_published_total",
		Help: "Total number of published posts",
	})

	// PostsDeleted counts deleted posts.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_deleted_total",
		Help: "Total number of deleted posts",
	})

	// AvatarUploads counts avatar uploads by result ("stored" or "rejected").
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_avatar_uploads_total",
		Help: "Total number of avatar uploads by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
