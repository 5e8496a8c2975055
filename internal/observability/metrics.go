package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                sync.Once
	apiRequestsTotal            *prometheus.CounterVec
	apiLatencySeconds           *prometheus.HistogramVec
	apiErrorsTotal              *prometheus.CounterVec
	allocationOutcomesTotal     *prometheus.CounterVec
	allocationDurationSeconds   *prometheus.HistogramVec
	occupancyRepairsTotal       prometheus.Counter
	notificationsPublishedTotal *prometheus.CounterVec
	sseClientsActive            prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostel_api_requests_total",
			Help: "API requests served, by area (student, admin, seed).",
		}, []string{"area", "method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hostel_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"area", "method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostel_api_errors_total",
			Help: "Error responses returned by the API.",
		}, []string{"area", "method", "route", "status"})

		allocationOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_outcomes_total",
			Help: "Outcomes of request submissions and staff decisions.",
		}, []string{"operation", "outcome"})

		allocationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "allocation_duration_seconds",
			Help:    "Time spent inside allocation transactions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"})

		occupancyRepairsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occupancy_repairs_total",
			Help: "Rooms whose occupancy counter was corrected by reconciliation.",
		})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications delivered to student inboxes by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notifications_sse_clients_active",
			Help: "Number of open notification streams.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			allocationOutcomesTotal,
			allocationDurationSeconds,
			occupancyRepairsTotal,
			notificationsPublishedTotal,
			sseClientsActive,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AllocationOutcomes counts submit/approve/reject results.
func AllocationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return allocationOutcomesTotal
}

// AllocationDuration observes allocation transaction latency.
func AllocationDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return allocationDurationSeconds
}

// OccupancyRepairs counts rooms fixed by reconciliation.
func OccupancyRepairs() prometheus.Counter {
	RegisterMetrics()
	return occupancyRepairsTotal
}

// NotificationsPublishedTotal counts delivered notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// SSEClientsActive tracks open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
