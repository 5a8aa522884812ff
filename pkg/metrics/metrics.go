package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 上游 sleepingpill 拉取延迟（秒）
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sleepingpill_fetch_duration_seconds",
			Help:    "Upstream session list fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
	)

	// 同步结果计数
	SyncSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_sessions_total",
			Help: "Sessions added, changed or deleted by reconciliation",
		},
		[]string{"change"}, // added, changed, deleted
	)

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Reconciliation runs by outcome",
		},
		[]string{"status"}, // success, failed, locked
	)

	// 入队计数
	QueueEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_queue_enqueued_total",
			Help: "Email queue entries written",
		},
		[]string{"action", "source"}, // source: sync, join, leave, update
	)

	// 出队处理计数
	QueueProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_queue_processed_total",
			Help: "Email queue entries handled by the processor",
		},
		[]string{"action", "result"}, // result: sent, skipped, unknown, failed
	)

	MailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_send_duration_seconds",
			Help:    "Mail transport send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"provider", "status"},
	)

	// 数据库慢查询
	DBSlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordFetch 记录上游拉取延迟
func RecordFetch(status string, duration time.Duration) {
	FetchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSync records the outcome of one reconciliation pass.
func RecordSync(added, changed, deleted int) {
	SyncSessions.WithLabelValues("added").Add(float64(added))
	SyncSessions.WithLabelValues("changed").Add(float64(changed))
	SyncSessions.WithLabelValues("deleted").Add(float64(deleted))
}

// IncrementSyncRun 增加同步运行计数
func IncrementSyncRun(status string) {
	SyncRuns.WithLabelValues(status).Inc()
}

// IncrementEnqueued 增加入队计数
func IncrementEnqueued(action, source string) {
	QueueEnqueued.WithLabelValues(action, source).Inc()
}

// IncrementProcessed 增加出队处理计数
func IncrementProcessed(action, result string) {
	QueueProcessed.WithLabelValues(action, result).Inc()
}

// RecordMailSend 记录邮件发送延迟
func RecordMailSend(provider, status string, duration time.Duration) {
	MailSendDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(statement string) {
	DBSlowQueries.WithLabelValues(statement).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
