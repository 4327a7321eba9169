package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProjectionTasksTotal counts processed projection tasks by kind and outcome
	// (ok, retry, dead_letter).
	ProjectionTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "projection_tasks_total",
		Help:      "Projection tasks processed by kind and outcome",
	}, []string{"kind", "outcome"})

	// ProjectionApplyDuration measures index-apply latency per task kind.
	ProjectionApplyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "datahub",
		Name:      "projection_apply_duration_seconds",
		Help:      "Time spent applying a projection task to the search index",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
	}, []string{"kind"})

	// ProjectionQueueDepth tracks entities with pending or in-flight tasks.
	ProjectionQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "projection_queue_depth",
		Help:      "Entities with pending or in-flight tasks per queue",
	}, []string{"queue"})

	// DeadLetterDepth is the operator-visible alert condition: it only grows
	// until someone inspects the dead-letter list.
	DeadLetterDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Name:      "dead_letter_depth",
		Help:      "Tasks parked in the dead-letter list per queue",
	}, []string{"queue"})

	// EnrichmentRunsTotal counts enrichment pipeline runs by terminal stage
	// and outcome (ok, failed).
	EnrichmentRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "enrichment_runs_total",
		Help:      "Enrichment pipeline runs by stage and outcome",
	}, []string{"stage", "outcome"})

	// DedupChecksTotal counts dedup admissions and suppressions per counter kind.
	DedupChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Name:      "dedup_checks_total",
		Help:      "Dedup counter checks by kind and result (admitted, deduped, error)",
	}, []string{"kind", "result"})
)

// RegisterPipelineMetrics registers the projection, enrichment, and dedup
// collectors. Called once from the composition root (no init()).
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		ProjectionTasksTotal,
		ProjectionApplyDuration,
		ProjectionQueueDepth,
		DeadLetterDepth,
		EnrichmentRunsTotal,
		DedupChecksTotal,
	)
}
