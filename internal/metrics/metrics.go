package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "http_requests_total",
		Help:      "Total sidecar HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinegram",
		Name:      "http_request_duration_seconds",
		Help:      "Sidecar HTTP request duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "commands_total",
		Help:      "Total decoded chat commands by kind.",
	}, []string{"command"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "provider_requests_total",
		Help:      "Total requests to upstream providers by endpoint and result status.",
	}, []string{"provider", "endpoint", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinegram",
		Name:      "provider_request_duration_seconds",
		Help:      "Upstream provider request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "endpoint"})

	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "resolutions_total",
		Help:      "Movie resolution outcomes: matched, not_found or upstream_error.",
	}, []string{"outcome"})

	FanoutItemsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "fanout_items_total",
		Help:      "New feed items picked up by the fan-out loop.",
	})

	FanoutDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "fanout_deliveries_total",
		Help:      "Per-subscriber fan-out delivery attempts by status.",
	}, []string{"status"})

	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinegram",
		Name:      "subscribers",
		Help:      "Current number of registered subscribers.",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "tmdb_cache_hits_total",
		Help:      "Total TMDB response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cinegram",
		Name:      "tmdb_cache_misses_total",
		Help:      "Total TMDB response cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CommandsTotal,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ResolutionsTotal,
		FanoutItemsTotal,
		FanoutDeliveriesTotal,
		Subscribers,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
