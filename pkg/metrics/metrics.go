package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
	RedisOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	RedisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis operation errors",
		},
		[]string{"operation"},
	)
	MongoOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_operation_duration_seconds",
			Help:    "MongoDB operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)
	MongoErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_errors_total",
			Help: "Total number of MongoDB operation errors",
		},
		[]string{"operation", "collection"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Total number of search cache hits",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Total number of search cache misses",
		},
	)
	CacheDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_degraded_total",
			Help: "Total number of searches served by direct computation after a cache failure",
		},
	)
	GeoQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geo_query_duration_seconds",
			Help:    "Geo index query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	PrefetchScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prefetch_scheduled_total",
			Help: "Total number of background page prefetches scheduled",
		},
	)
	PrefetchSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_suppressed_total",
			Help: "Total number of prefetches suppressed by guard conditions",
		},
		[]string{"reason"},
	)
	HubConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections",
			Help: "Number of live realtime connections",
		},
	)
	HubRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_rooms",
			Help: "Number of active broadcast rooms",
		},
	)
	HubMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_total",
			Help: "Total number of messages published to rooms",
		},
		[]string{"type"},
	)
	HubDroppedConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_dropped_connections_total",
			Help: "Total number of connections dropped for slow or failed delivery",
		},
	)
)

func Init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(RedisOperationDuration)
	prometheus.MustRegister(RedisErrorsTotal)
	prometheus.MustRegister(MongoOperationDuration)
	prometheus.MustRegister(MongoErrorsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheDegradedTotal)
	prometheus.MustRegister(GeoQueryDuration)
	prometheus.MustRegister(PrefetchScheduledTotal)
	prometheus.MustRegister(PrefetchSuppressedTotal)
	prometheus.MustRegister(HubConnections)
	prometheus.MustRegister(HubRooms)
	prometheus.MustRegister(HubMessagesTotal)
	prometheus.MustRegister(HubDroppedConnectionsTotal)
}
