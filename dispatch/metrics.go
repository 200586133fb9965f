package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricJobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_created_total",
			Help: "Total number of jobs created, per region.",
		},
		[]string{"region"},
	)

	metricJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_completed_total",
			Help: "Total number of jobs that reached the COMPLETED state, per region.",
		},
		[]string{"region"},
	)

	metricJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_failed_total",
			Help: "Total number of jobs that reached the FAILED state, per region and reason.",
		},
		[]string{"region", "reason"},
	)

	metricInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_region_in_flight",
			Help: "Jobs currently holding an admission slot, per region.",
		},
		[]string{"region"},
	)

	metricPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_region_pending",
			Help: "Jobs queued behind the admission cap, per region.",
		},
		[]string{"region"},
	)

	metricWorkersIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_workers_idle",
			Help: "Workers currently idle in the shared pool.",
		},
	)
)

func failReason(err error) string {
	switch err {
	case ErrNoWorkerAvailable:
		return "no_worker"
	case ErrShutdownTimeout:
		return "abandoned"
	case ErrJobInterrupted:
		return "interrupted"
	default:
		return "other"
	}
}
