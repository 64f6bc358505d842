// Package observability exposes the service's Prometheus metrics and tracing setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitplan"

var (
	plansGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "plans_generated_total",
		Help:      "Workout plans produced, partitioned by generation source.",
	}, []string{"source"})
	primaryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "primary_failures_total",
		Help:      "Primary generation attempts recovered by the fallback, by reason.",
	}, []string{"reason"})
	requestsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "requests_rejected_total",
		Help:      "Requests rejected before or during generation, by reason.",
	}, []string{"reason"})
	generationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "generation_duration_seconds",
		Help:      "End-to-end plan generation latency.",
		Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 20, 30},
	}, []string{"kind"})
	sideEffectFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "side_effect_failures_total",
		Help:      "Failed cache or interaction log writes.",
	}, []string{"target"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Plan cache lookups by result.",
	}, []string{"result"})
	interactionsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "interactions",
		Name:      "dropped_total",
		Help:      "Interaction records dropped because the write queue was full.",
	})
	interactionsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "interactions",
		Name:      "written_total",
		Help:      "Interaction records handed to the sink, by outcome.",
	}, []string{"outcome"})
	breakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "generative",
		Name:      "breaker_state",
		Help:      "Circuit breaker state for the generative client (0 closed, 1 half-open, 2 open).",
	})
	chatConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "connections",
		Help:      "Currently registered chat connections.",
	})
	lastPlanGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "last_plan_generated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent plan produced.",
	})
)

func init() {
	prometheus.MustRegister(
		plansGenerated,
		primaryFailures,
		requestsRejected,
		generationLatency,
		sideEffectFailures,
		cacheLookups,
		interactionsDropped,
		interactionsWritten,
		breakerState,
		chatConnections,
		lastPlanGauge,
	)
}

// RecordPlanGenerated counts a plan and moves the freshness watermark.
func RecordPlanGenerated(source string, ts time.Time) {
	plansGenerated.WithLabelValues(source).Inc()
	if !ts.IsZero() {
		lastPlanGauge.Set(float64(ts.Unix()))
	}
}

// RecordPrimaryFailure counts a primary attempt that fell back.
func RecordPrimaryFailure(reason string) {
	primaryFailures.WithLabelValues(reason).Inc()
}

// RecordRejected counts a request that produced a caller-visible error.
func RecordRejected(reason string) {
	requestsRejected.WithLabelValues(reason).Inc()
}

// ObserveGeneration records latency for a generation kind (workout, nutrition, chat).
func ObserveGeneration(kind string, d time.Duration) {
	generationLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSideEffectFailure counts a failed best-effort write.
func RecordSideEffectFailure(target string) {
	sideEffectFailures.WithLabelValues(target).Inc()
}

// RecordCacheLookup counts a hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordInteractionDropped counts a record discarded by a full queue.
func RecordInteractionDropped() {
	interactionsDropped.Inc()
}

// RecordInteractionWrite counts a sink write outcome.
func RecordInteractionWrite(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	interactionsWritten.WithLabelValues(outcome).Inc()
}

// SetBreakerState publishes the generative breaker state.
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

// SetChatConnections publishes the chat registry size.
func SetChatConnections(n int) {
	chatConnections.Set(float64(n))
}
