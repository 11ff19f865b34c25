// Package metrics holds the Prometheus collectors shared by the API and the worker
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbhash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Webhook and queue metrics
var (
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_webhooks_total",
			Help: "Webhooks dispatched by topic and outcome",
		},
		[]string{"topic", "result"},
	)

	QueueEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbhash_queue_enqueued_total",
			Help: "Queue items accepted by the transport",
		},
	)

	QueueItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_queue_items_total",
			Help: "Queue items processed by outcome",
		},
		[]string{"result"},
	)

	QueueRedeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbhash_queue_redeliveries_total",
			Help: "In-flight items returned to the queue after their visibility timeout",
		},
	)

	QueueDeadLetteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbhash_queue_dead_lettered_total",
			Help: "Items moved to the dead letter list",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbhash_queue_depth",
			Help: "Items in the work queue by state",
		},
		[]string{"state"},
	)
)

// Media pipeline metrics
var (
	MediaSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_media_skipped_total",
			Help: "Media records skipped by reason",
		},
		[]string{"reason"},
	)

	MediaPatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_media_patched_total",
			Help: "Patch calls writing a hash back to the source system",
		},
		[]string{"status"},
	)

	HashRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbhash_hash_requests_total",
			Help: "Hash generation calls by final outcome",
		},
		[]string{"result"},
	)

	HashRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbhash_hash_retries_total",
			Help: "Retries issued against the hash generation service",
		},
	)

	HashRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbhash_hash_request_duration_seconds",
			Help:    "Duration of a single hash generation attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)
