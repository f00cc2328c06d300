package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

/*
Prometheus instrumentation for the price service. Metrics are instance scoped
and registered on a caller-supplied registerer, leaving exposure up to the
embedding application. A nil *Metrics is valid and turns every recording
method into a no-op, which is how the service runs when no registerer is
configured.
*/

////////////////////////////////////////////////////////////////////////////////

// Merge outcome label values for the prices_merged counter.
const (
	OutcomeInserted = "inserted"
	OutcomeReplaced = "replaced"
	OutcomeKept     = "kept"
	OutcomeSkipped  = "skipped"
)

// Metrics is the set of instruments recorded by the price service.
type Metrics struct {
	batchesStarted     prometheus.Counter
	batchesCompleted   prometheus.Counter
	batchesCancelled   prometheus.Counter
	chunksUploaded     prometheus.Counter
	pricesMerged       *prometheus.CounterVec
	pricesPerBatch     prometheus.Histogram
	instrumentsTracked prometheus.Gauge
}

// New builds the metric set and registers it on reg, panicking on collision
// per the client library's MustRegister contract.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricemark_batches_started_total",
			Help: "Total batches started, including restarts of an existing id",
		}),
		batchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricemark_batches_completed_total",
			Help: "Total batches completed and merged",
		}),
		batchesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricemark_batches_cancelled_total",
			Help: "Total batches cancelled and discarded",
		}),
		chunksUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricemark_chunks_uploaded_total",
			Help: "Total accepted chunk uploads",
		}),
		pricesMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricemark_prices_merged_total",
			Help: "Total prices processed by merges, by outcome",
		}, []string{"outcome"}),
		pricesPerBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricemark_prices_per_batch",
			Help:    "Distribution of prices per completed batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		instrumentsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricemark_instruments_tracked",
			Help: "Number of instruments currently tracked in the latest-value table",
		}),
	}
	reg.MustRegister(
		m.batchesStarted,
		m.batchesCompleted,
		m.batchesCancelled,
		m.chunksUploaded,
		m.pricesMerged,
		m.pricesPerBatch,
		m.instrumentsTracked,
	)
	return m
}

// BatchStarted records a batch start or restart.
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchesStarted.Inc()
}

// BatchCompleted records a completed batch and the number of prices it held.
func (m *Metrics) BatchCompleted(size int) {
	if m == nil {
		return
	}
	m.batchesCompleted.Inc()
	m.pricesPerBatch.Observe(float64(size))
}

// BatchCancelled records a cancelled batch.
func (m *Metrics) BatchCancelled() {
	if m == nil {
		return
	}
	m.batchesCancelled.Inc()
}

// ChunkUploaded records an accepted chunk upload.
func (m *Metrics) ChunkUploaded() {
	if m == nil {
		return
	}
	m.chunksUploaded.Inc()
}

// MergeOutcomes records per-outcome price counts from one merge.
func (m *Metrics) MergeOutcomes(inserted, replaced, kept, skipped int) {
	if m == nil {
		return
	}
	m.pricesMerged.WithLabelValues(OutcomeInserted).Add(float64(inserted))
	m.pricesMerged.WithLabelValues(OutcomeReplaced).Add(float64(replaced))
	m.pricesMerged.WithLabelValues(OutcomeKept).Add(float64(kept))
	m.pricesMerged.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
}

// SetInstrumentsTracked records the current size of the latest-value table.
func (m *Metrics) SetInstrumentsTracked(n int) {
	if m == nil {
		return
	}
	m.instrumentsTracked.Set(float64(n))
}
