package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sehyunkim/finbook/internal/jobs"
)

// Queue is an in-process publisher and consumer backed by a buffered channel.
// It is suitable for single-instance deployments and tests; multi-instance
// deployments should use the AMQP queue instead.
type Queue struct {
	jobChan   chan *jobs.ReportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	workers   int
	closed    bool
}

// NewQueue creates an in-memory queue. bufferSize bounds how many jobs can be
// pending before PublishReportJob blocks; workers bounds handler concurrency.
func NewQueue(bufferSize, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *jobs.ReportJob, bufferSize),
		closeChan: make(chan struct{}),
		workers:   workers,
	}
}

// PublishReportJob enqueues a job for asynchronous processing.
func (q *Queue) PublishReportJob(ctx context.Context, job *jobs.ReportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	select {
	case q.jobChan <- job:
		jobs.MarkPublished(job.Period)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.ReportJob, handler jobs.Handler) {
	job.Status = jobs.JobStatusRunning

	err := handler(ctx, job)
	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		return
	}

	job.Error = err.Error()
	if jobs.Retryable(err) && job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying

		// Re-enqueue after a linear backoff so transient failures clear.
		backoff := time.Duration(job.RetryCount) * time.Second
		time.AfterFunc(backoff, func() {
			job.Status = jobs.JobStatusPending
			_ = q.PublishReportJob(context.Background(), job)
		})
		return
	}
	job.Status = jobs.JobStatusFailed
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
