package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed permanently.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and will run again.
	JobStatusRetrying JobStatus = "retrying"
)

// ReportJob asks a worker to build one user's spending report for a period.
// Delivery is at-least-once; the report upsert makes reruns safe.
type ReportJob struct {
	JobID      string             `json:"job_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Period     finance.PeriodKind `json:"period"`
	AsOf       time.Time          `json:"as_of"`
	Status     JobStatus          `json:"status"`
	RetryCount int                `json:"retry_count"`
	MaxRetries int                `json:"max_retries"`
	CreatedAt  time.Time          `json:"created_at"`
	Error      string             `json:"error,omitempty"`
}

// NewReportJob builds a pending job for one user and period.
func NewReportJob(userID uuid.UUID, period finance.PeriodKind, asOf time.Time) *ReportJob {
	return &ReportJob{
		JobID:     uuid.New().String(),
		UserID:    userID,
		Period:    period,
		AsOf:      asOf,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// ToJSON converts the job to its wire form.
func (j *ReportJob) ToJSON() ([]byte, error) { return json.Marshal(j) }

// ReportJobFromJSON parses a job from its wire form.
func ReportJobFromJSON(data []byte) (*ReportJob, error) {
	var j ReportJob
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Handler processes one job. A nil return acknowledges the job; an error lets
// the queue apply its retry policy.
type Handler func(ctx context.Context, job *ReportJob) error

// Retryable reports whether redelivering a failed job could change the
// outcome. Validation failures are permanent: an unknown period kind or a
// missing user stays wrong however often the job runs, so consumers drop the
// job instead of requeueing it.
func Retryable(err error) bool {
	if errors.Is(err, errs.ErrInvalidPeriod) || errors.Is(err, errs.ErrNotFound) {
		return false
	}
	return true
}

// Publisher enqueues report jobs.
type Publisher interface {
	PublishReportJob(ctx context.Context, job *ReportJob) error
	Close() error
}

// Consumer runs handlers against queued jobs until stopped.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}
