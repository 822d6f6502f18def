package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	BatchesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_batches_received_total", Help: "Datagram batches received from the provider"})
	QuotesAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotes_accepted_total", Help: "Quotes admitted into the rate graph"})
	QuotesSequencingOnlyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotes_sequencing_only_total", Help: "Accepted quotes with non-positive price (no edge mutation)"})
	QuotesOutOfSequenceTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotes_out_of_sequence_total", Help: "Quotes rejected because their timestamp did not advance"})
	StalePairsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stale_pairs_removed_total", Help: "Currency pairs evicted after the expiration threshold"})
	OpportunitiesFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbitrage_opportunities_found_total", Help: "Reported arbitrage cycles"})
	CyclesDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "negative_cycles_discarded_total", Help: "Negative-cycle witnesses whose reconstruction was discarded"})
	GraphVertices = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rate_graph_vertices", Help: "Currencies with at least one live edge"})
	GraphEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rate_graph_edges", Help: "Live directed edges in the rate graph"})
	TrackedPairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracked_pairs", Help: "Currency pairs with a recorded timestamp"})
	BatchProcessingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "batch_processing_seconds", Help: "Full expire/admit/detect pass per batch",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14)})
)

// Init registers all collectors on a fresh registry.
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		BatchesReceivedTotal, QuotesAcceptedTotal, QuotesSequencingOnlyTotal,
		QuotesOutOfSequenceTotal, StalePairsRemovedTotal,
		OpportunitiesFoundTotal, CyclesDiscardedTotal,
		GraphVertices, GraphEdges, TrackedPairs, BatchProcessingSeconds,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

// Handler exposes the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
