package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's prometheus metrics behind a private
// registry.
type Collector struct {
	reg *prometheus.Registry

	FeedFetches    prometheus.Counter
	FeedFetchErrs  prometheus.Counter
	FeedFetchTime  prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	NightSaves     prometheus.Counter
	NightSaveErrs  prometheus.Counter
	NightDeletes   prometheus.Counter
	RidesExtracted prometheus.Gauge
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FeedFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_feed_fetches_total",
			Help: "Total upstream feed archive downloads.",
		}),
		FeedFetchErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_feed_fetch_errors_total",
			Help: "Total failed upstream feed downloads.",
		}),
		FeedFetchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busdepart_feed_fetch_duration_seconds",
			Help:    "Duration of upstream feed download and parse.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_cache_hits_total",
			Help: "Departure requests served from the ride cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_cache_misses_total",
			Help: "Departure requests that triggered a feed refresh.",
		}),
		NightSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_night_saves_total",
			Help: "Night snapshots persisted.",
		}),
		NightSaveErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_night_save_errors_total",
			Help: "Failed night snapshot saves.",
		}),
		NightDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busdepart_night_deletes_total",
			Help: "Night snapshots deleted.",
		}),
		RidesExtracted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busdepart_rides_extracted",
			Help: "Rides produced by the last extraction pass.",
		}),
	}

	reg.MustRegister(
		c.FeedFetches, c.FeedFetchErrs, c.FeedFetchTime,
		c.CacheHits, c.CacheMisses,
		c.NightSaves, c.NightSaveErrs, c.NightDeletes,
		c.RidesExtracted,
		collectors.NewGoCollector(),
	)

	return c
}

// Handler exposes the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
