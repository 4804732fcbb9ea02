// Package observability provides tracing and domain metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts new posts by kind.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_posts_created_total",
		Help: "Total number of posts created by kind",
	}, []string{"kind"})

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_notifications_created_total",
		Help: "Total number of notifications created by type",
	}, []string{"type"})

	// FeedRequests counts served feed and search pages by view.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_feed_requests_total",
		Help: "Total number of feed and search pages served",
	}, []string{"view"})

	// Impressions counts post impressions recorded across all views.
	Impressions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirp_impressions_total",
		Help: "Total number of post impressions recorded",
	})

	// ModerationActions counts admin actions by kind.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_moderation_actions_total",
		Help: "Total number of admin moderation actions",
	}, []string{"action"})
)

const queryStartKey = "chirp:query_start"

func beforeQuery(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func afterQuery(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RegisterDatabaseMetrics installs gorm callbacks that observe query latency per table.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", beforeQuery),
		cb.Create().After("gorm:create").Register("metrics:after_create", afterQuery("create")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", beforeQuery),
		cb.Query().After("gorm:query").Register("metrics:after_query", afterQuery("query")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", beforeQuery),
		cb.Update().After("gorm:update").Register("metrics:after_update", afterQuery("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", beforeQuery),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", afterQuery("delete")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", beforeQuery),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", afterQuery("raw")),
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
