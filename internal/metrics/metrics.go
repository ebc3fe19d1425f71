// Package metrics exposes prometheus collectors for jobs, stages and the
// external services the pipeline calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job metrics
	jobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "takehome_jobs_submitted_total",
			Help: "Total number of generation jobs accepted",
		},
	)

	jobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takehome_jobs_finished_total",
			Help: "Total number of generation jobs finished by terminal status",
		},
		[]string{"status"}, // "completed" or "failed"
	)

	jobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "takehome_jobs_active",
			Help: "Number of pipelines currently executing",
		},
	)

	// Stage metrics
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "takehome_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
		},
		[]string{"stage", "result"}, // result: "done", "error"
	)

	stageSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takehome_stage_skipped_total",
			Help: "Stages skipped because an input artifact was missing",
		},
		[]string{"stage"},
	)

	// External service metrics
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "takehome_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds by model",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 11), // 0.25s to ~4m
		},
		[]string{"model", "status"},
	)

	searchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "takehome_search_requests_total",
			Help: "Web search requests by outcome",
		},
		[]string{"status"},
	)
)

// JobSubmitted counts an accepted job.
func JobSubmitted() {
	jobsSubmitted.Inc()
}

// JobStarted marks a pipeline as executing.
func JobStarted() {
	jobsActive.Inc()
}

// JobFinished records a job's terminal status and releases its active slot.
func JobFinished(status string) {
	jobsActive.Dec()
	jobsFinished.WithLabelValues(status).Inc()
}

// ObserveStage records one stage execution.
func ObserveStage(stage, result string, d time.Duration) {
	stageDuration.WithLabelValues(stage, result).Observe(d.Seconds())
}

// StageSkipped counts a stage skipped for a missing input.
func StageSkipped(stage string) {
	stageSkipped.WithLabelValues(stage).Inc()
}

// ObserveLLM records one chat completion call.
func ObserveLLM(model, status string, d time.Duration) {
	llmRequestDuration.WithLabelValues(model, status).Observe(d.Seconds())
}

// SearchRequest counts one web search call.
func SearchRequest(status string) {
	searchRequests.WithLabelValues(status).Inc()
}

// Handler serves the default registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
