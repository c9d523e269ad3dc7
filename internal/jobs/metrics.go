package jobs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sehyunkim/finbook/internal/finance"
)

var (
	jobsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbook_report_jobs_published_total",
		Help: "Report jobs published, by period.",
	}, []string{"period"})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbook_report_jobs_processed_total",
		Help: "Report jobs processed, by period and outcome.",
	}, []string{"period", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finbook_report_job_duration_seconds",
		Help:    "Time spent building one report.",
		Buckets: prometheus.DefBuckets,
	}, []string{"period"})
)

// MarkPublished records one published job.
func MarkPublished(period finance.PeriodKind) {
	jobsPublished.WithLabelValues(string(period)).Inc()
}

// Instrument wraps a handler with processing counters and a duration
// histogram.
func Instrument(handler Handler) Handler {
	return func(ctx context.Context, job *ReportJob) error {
		start := time.Now()
		err := handler(ctx, job)
		jobDuration.WithLabelValues(string(job.Period)).Observe(time.Since(start).Seconds())

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		jobsProcessed.WithLabelValues(string(job.Period), outcome).Inc()
		return err
	}
}
