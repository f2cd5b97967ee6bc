package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wagerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_requests_total",
			Help: "Wager requests by result (accepted|rejected|fault|invalid) and rejection reason",
		},
		[]string{"result", "reason"},
	)

	wagerCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wager_commit_duration_ms",
			Help:    "Ledger debit transaction duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	batcherFlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_batcher_flush_total",
			Help: "Batcher flush operations by result",
		},
		[]string{"result"},
	)

	batcherFlushSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wager_batcher_flush_size",
			Help:    "Messages per batcher flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	batcherDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_batcher_dropped_total",
			Help: "Messages dropped before enqueue by reason",
		},
		[]string{"reason"},
	)

	consumerMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_consumer_messages_total",
			Help: "Messages read from the bus by the analytics consumer",
		},
	)

	consumerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_consumer_errors_total",
			Help: "Analytics consumer errors by stage",
		},
		[]string{"stage"},
	)

	writerDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_writer_duplicates_total",
			Help: "Events skipped by the dedup delivery strategy",
		},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_query_duration_ms",
			Help:    "Aggregation query duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"bucket"},
	)
)

// RecordWager registra o desfecho de um placeWager.
func RecordWager(result, reason string) { wagerTotal.WithLabelValues(result, reason).Inc() }

func ObserveCommit(d time.Duration) {
	wagerCommitDuration.Observe(float64(d.Microseconds()) / 1000)
}

// RecordFlush registra um flush do batcher; result: "ok" | "error"
func RecordFlush(result string, size int) {
	batcherFlushTotal.WithLabelValues(result).Inc()
	batcherFlushSize.Observe(float64(size))
}

func RecordDrop(reason string) { batcherDropped.WithLabelValues(reason).Inc() }

func IncConsumed() { consumerMessages.Inc() }

func IncConsumerError(stage string) { consumerErrors.WithLabelValues(stage).Inc() }

func IncDuplicate() { writerDuplicates.Inc() }

func ObserveQuery(bucket string, started time.Time) {
	queryDuration.WithLabelValues(bucket).Observe(float64(time.Since(started).Milliseconds()))
}
