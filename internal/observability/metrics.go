package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsched_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vsched_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	CalendarFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vsched_calendar_fallbacks_total",
			Help: "Availability lookups that degraded to the hourly fallback path",
		},
	)

	SwapCompensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vsched_swap_compensations_total",
			Help: "Swap fee refunds issued after a failed swap",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vsched_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vsched_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vsched_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
