package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mumble_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EventSubscribers is the gauge of active SSE subscribers.
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mumble_event_subscribers",
		Help: "Number of active SSE subscribers",
	})

	// EventsPublished counts published events by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mumble_events_published_total",
		Help: "Total number of events published by event type",
	}, []string{"event_type"})

	// EventsDropped counts events dropped because a subscriber's buffer was full.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mumble_events_dropped_total",
		Help: "Total number of events dropped due to slow subscribers",
	}, []string{"reason"})

	// MediaUploadBytes records the size of uploaded media objects.
	MediaUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mumble_media_upload_bytes",
		Help:    "Size of uploaded media objects in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	// IntrospectionCacheHits counts token introspection cache hits and misses.
	IntrospectionCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mumble_introspection_cache_total",
		Help: "Token introspection cache lookups by outcome",
	}, []string{"outcome"})
)
