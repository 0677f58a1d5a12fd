package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	autogradeTotal        *prometheus.CounterVec
	expansionDegraded     *prometheus.CounterVec
	expansionCacheTotal   *prometheus.CounterVec
	uploadRequestsTotal   *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	submissionEventsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served, by caller role.",
		}, []string{"method", "route", "status", "role"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		autogradeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autograde_total",
			Help: "Submissions processed by the auto-grader, by outcome.",
		}, []string{"outcome"})

		expansionDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expansion_degraded_total",
			Help: "Question set expansions that fell back to the unexpanded payload.",
		}, []string{"target"})

		expansionCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expansion_cache_total",
			Help: "Question set expansion cache lookups, by result.",
		}, []string{"result"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Attachments stored, by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Attachments rejected before storage, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency of attachment uploads.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		})

		submissionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_events_total",
			Help: "Submission lifecycle events published, by subject and result.",
		}, []string{"event", "result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			autogradeTotal,
			expansionDegraded,
			expansionCacheTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			submissionEventsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Autograde counts auto-grading outcomes (graded, ungraded).
func Autograde() *prometheus.CounterVec {
	RegisterMetrics()
	return autogradeTotal
}

// ExpansionDegraded counts expansions that could not attach the question set.
func ExpansionDegraded() *prometheus.CounterVec {
	RegisterMetrics()
	return expansionDegraded
}

// ExpansionCache counts expansion cache hits, misses and errors.
func ExpansionCache() *prometheus.CounterVec {
	RegisterMetrics()
	return expansionCacheTotal
}

func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// SubmissionEvents counts published submission events.
func SubmissionEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionEventsTotal
}
