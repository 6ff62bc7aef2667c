package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes processing pipeline counters and gauges.
type Metrics struct {
	JobsStarted   prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsCancelled prometheus.Counter
	JobsRecovered prometheus.Counter
	ActiveWorkers prometheus.Gauge
	DocumentsOK   prometheus.Counter
	DocumentsFail prometheus.Counter
}

// NewMetrics registers the pipeline metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_jobs_started_total",
			Help: "Total number of processing jobs started",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_jobs_completed_total",
			Help: "Total number of processing jobs completed",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_jobs_failed_total",
			Help: "Total number of processing jobs that failed and rolled back",
		}),
		JobsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_jobs_cancelled_total",
			Help: "Total number of processing jobs cancelled by shutdown",
		}),
		JobsRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_jobs_recovered_total",
			Help: "Total number of cases requeued after a stale lock reclaim",
		}),
		ActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "citizenship_processing_active_workers",
			Help: "Number of processing workers currently holding a case",
		}),
		DocumentsOK: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_documents_processed_total",
			Help: "Total number of documents extracted successfully",
		}),
		DocumentsFail: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_processing_documents_failed_total",
			Help: "Total number of documents that failed extraction",
		}),
	}
}
