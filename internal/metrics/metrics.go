// Package metrics exports pipeline observations to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// Collector implements ports.Metrics.
type Collector struct {
	discovered     *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	batchStatus    *prometheus.CounterVec
	items          *prometheus.CounterVec
	extractions    *prometheus.CounterVec
	extractLatency prometheus.Histogram
	validations    *prometheus.CounterVec
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector builds the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_discovered_urls_total",
			Help: "Candidate URLs returned by each discovery source.",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_source_failures_total",
			Help: "Discovery source failures by severity.",
		}, []string{"source", "severity"}),
		batchStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_batch_transitions_total",
			Help: "Discovery batch transitions by target status.",
		}, []string{"status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_items_total",
			Help: "Processed URLs by outcome.",
		}, []string{"status"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_extractions_total",
			Help: "Extraction jobs by result.",
		}, []string{"result"}),
		extractLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsharvester_extraction_seconds",
			Help:    "Wall time from submission to extraction result.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsharvester_validations_total",
			Help: "Validation decisions.",
		}, []string{"valid"}),
	}

	reg.MustRegister(
		c.discovered,
		c.sourceFailures,
		c.batchStatus,
		c.items,
		c.extractions,
		c.extractLatency,
		c.validations,
	)
	return c
}

func (c *Collector) RecordDiscovered(source string, count int) {
	c.discovered.WithLabelValues(source).Add(float64(count))
}

func (c *Collector) RecordSourceFailure(source, severity string) {
	c.sourceFailures.WithLabelValues(source, severity).Inc()
}

func (c *Collector) RecordBatchStatus(status domain.BatchStatus) {
	c.batchStatus.WithLabelValues(string(status)).Inc()
}

func (c *Collector) RecordItem(status domain.ItemStatus) {
	c.items.WithLabelValues(string(status)).Inc()
}

func (c *Collector) RecordExtraction(result string, duration time.Duration) {
	c.extractions.WithLabelValues(result).Inc()
	c.extractLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordValidation(valid bool) {
	c.validations.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
