// Package metrics holds the Prometheus collectors for the scrape pipeline.
// They are exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScrapesTotal counts pipeline runs by outcome: "items", "empty",
	// "invalid_source", "fetch_failed", "timeout" or "error".
	ScrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartlink",
		Name:      "scrapes_total",
		Help:      "Cart scrape requests by outcome.",
	}, []string{"outcome"})

	// ShareResolutionsTotal counts share-link resolution attempts.
	ShareResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartlink",
		Name:      "share_resolutions_total",
		Help:      "Share link resolutions by result (resolved, failed).",
	}, []string{"result"})

	// ExtractionsTotal counts which extraction strategy produced items.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartlink",
		Name:      "extractions_total",
		Help:      "Successful extractions by strategy.",
	}, []string{"strategy"})

	// ItemsExtracted observes the number of items per successful scrape.
	ItemsExtracted = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cartlink",
		Name:      "items_per_cart",
		Help:      "Items extracted per cart.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// FetchDuration observes upstream fetch latency per engine and kind
	// ("share" or "cart").
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cartlink",
		Name:      "fetch_duration_seconds",
		Help:      "Upstream page fetch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine", "kind"})

	// CacheLookupsTotal counts response cache lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartlink",
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups by result (hit, miss).",
	}, []string{"result"})
)
