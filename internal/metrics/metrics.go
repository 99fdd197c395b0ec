// Package metrics holds the Prometheus instruments for kernel loads,
// almanac queries, and the result cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	kernelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyx_kernel_loads_total",
			Help: "Total number of kernel load attempts.",
		},
		[]string{"family", "outcome"},
	)

	kernelsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nyx_kernels_loaded",
			Help: "Number of kernels currently loaded.",
		},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyx_queries_total",
			Help: "Total number of almanac queries.",
		},
		[]string{"kind", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nyx_query_duration_seconds",
			Help:    "Almanac query duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"kind"},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nyx_cache_hits_total",
			Help: "Result cache hits.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nyx_cache_misses_total",
			Help: "Result cache misses.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nyx_cache_entries",
			Help: "Entries currently held by the result cache.",
		},
	)
)

func init() {
	prometheus.MustRegister(kernelLoadsTotal)
	prometheus.MustRegister(kernelsLoaded)
	prometheus.MustRegister(queriesTotal)
	prometheus.MustRegister(queryDurationSeconds)
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
	prometheus.MustRegister(cacheEntries)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncKernelLoads records one load attempt per file family.
func IncKernelLoads(family, outcome string) {
	kernelLoadsTotal.WithLabelValues(family, outcome).Inc()
}

// SetKernelsLoaded tracks the currently loaded kernel count.
func SetKernelsLoaded(n int) {
	kernelsLoaded.Set(float64(n))
}

// ObserveQuery records one query with its outcome label and duration.
func ObserveQuery(kind, outcome string, start time.Time) {
	queriesTotal.WithLabelValues(kind, outcome).Inc()
	queryDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// IncCacheHits records a result cache hit.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses records a result cache miss.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// SetCacheEntries tracks the result cache population.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }
