// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transfer_agents/models"
)

const namespace = "transfer_agents"

// Fetch outcome labels.
const (
	FetchOK             = "ok"
	FetchHTTPError      = "http_error"
	FetchTransportError = "transport_error"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	listingRows    prometheus.Counter
	enrichOutcomes *prometheus.CounterVec
	enrichDuration prometheus.Histogram
	lastScrapeRows prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Page fetches by outcome.",
		}, []string{"outcome"}),
		listingRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_rows_total",
			Help:      "Transfer rows parsed from listing pages.",
		}),
		enrichOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_outcomes_total",
			Help:      "Enrichment results by outcome kind.",
		}, []string{"kind"}),
		enrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_pass_seconds",
			Help:      "Wall time of one enrichment pass.",
			Buckets:   []float64{1, 10, 60, 120, 300, 600},
		}),
		lastScrapeRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scrape_rows",
			Help:      "Rows saved by the most recent listing scrape.",
		}),
	}

	reg.MustRegister(
		m.fetches,
		m.listingRows,
		m.enrichOutcomes,
		m.enrichDuration,
		m.lastScrapeRows,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveListingRows(parsed, saved int) {
	if m == nil {
		return
	}
	m.listingRows.Add(float64(parsed))
	m.lastScrapeRows.Set(float64(saved))
}

func (m *Metrics) ObserveOutcome(o models.AgentOutcome) {
	if m == nil {
		return
	}
	m.enrichOutcomes.WithLabelValues(o.Kind.String()).Inc()
}

func (m *Metrics) ObservePass(d time.Duration) {
	if m == nil {
		return
	}
	m.enrichDuration.Observe(d.Seconds())
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
