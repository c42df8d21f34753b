package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	retrieverLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "policyrag_retriever_latency_ms",
		Help:    "Latency of retriever calls in milliseconds",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200},
	}, []string{"type"})

	retrieverResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "policyrag_retriever_results",
		Help:    "Number of results returned by a retriever",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"type"})

	fusionLists = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "policyrag_fusion_input_lists",
		Help:    "Number of lists fused per query",
		Buckets: []float64{0, 1, 2, 3, 4},
	})

	expansionRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "policyrag_expansion_rounds",
		Help:    "Chunk expansion rounds per request",
		Buckets: []float64{0, 1, 2, 3},
	})

	validationConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "policyrag_validation_confidence",
		Help:    "Weighted answer validation confidence",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	regenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policyrag_answer_regenerations_total",
		Help: "Answer regenerations by outcome",
	}, []string{"outcome"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(
			retrieverLatency, retrieverResults, fusionLists,
			expansionRounds, validationConfidence, regenerations,
		)
	})
}

// ObserveRetriever records latency and result size for a retriever type.
func ObserveRetriever(typ string, start time.Time, results int) {
	ensureRegistered()
	retrieverLatency.WithLabelValues(typ).Observe(float64(time.Since(start).Milliseconds()))
	retrieverResults.WithLabelValues(typ).Observe(float64(results))
}

// ObserveFusion records how many result lists entered fusion.
func ObserveFusion(lists int) {
	ensureRegistered()
	fusionLists.Observe(float64(lists))
}

// ObserveExpansionRounds records the final expansion count of a request.
func ObserveExpansionRounds(rounds int) {
	ensureRegistered()
	expansionRounds.Observe(float64(rounds))
}

// ObserveConfidence records a validation confidence score.
func ObserveConfidence(score float64) {
	ensureRegistered()
	validationConfidence.Observe(score)
}

// IncRegeneration counts a regeneration outcome ("retry", "accepted",
// "exhausted").
func IncRegeneration(outcome string) {
	ensureRegistered()
	regenerations.WithLabelValues(outcome).Inc()
}
