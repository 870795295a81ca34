package layer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEntries   prometheus.Gauge
	fetchesIssued  prometheus.Counter
	fetchesFailed  prometheus.Counter
	fetchesDropped prometheus.Counter
	fetchesAdopted prometheus.Counter
	redraws        prometheus.Counter
	tilesFiltered  prometheus.Counter
}

func newMetrics(id string) *metrics {
	labels := prometheus.Labels{"layer": id}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "alerttiles",
			Subsystem:   "layer",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	return &metrics{
		cacheHits:      counter("cache_hits_total", "Needed tiles found in the cache."),
		cacheMisses:    counter("cache_misses_total", "Needed tiles not in the cache."),
		fetchesIssued:  counter("fetches_total", "Tile fetches started."),
		fetchesFailed:  counter("fetch_failures_total", "Tile fetches that failed."),
		fetchesDropped: counter("fetches_discarded_total", "Tile fetches that completed for an outdated view."),
		fetchesAdopted: counter("fetches_adopted_total", "In-flight tile fetches taken over by a newer view."),
		redraws:        counter("redraws_total", "Filter changes applied to all cached tiles."),
		tilesFiltered:  counter("tiles_filtered_total", "Tiles run through the alert filter."),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "alerttiles",
			Subsystem:   "layer",
			Name:        "cache_entries",
			Help:        "Tiles in the cache.",
			ConstLabels: labels,
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cacheHits, m.cacheMisses, m.cacheEntries,
		m.fetchesIssued, m.fetchesFailed, m.fetchesDropped, m.fetchesAdopted,
		m.redraws, m.tilesFiltered,
	}
}
