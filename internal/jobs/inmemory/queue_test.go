package inmemory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/jobs"
)

func TestQueue_DeliversJobs(t *testing.T) {
	q := NewQueue(8, 2)
	defer q.Close()

	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := q.Start(ctx, func(_ context.Context, job *jobs.ReportJob) error {
		mu.Lock()
		seen[job.JobID] = true
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		job := jobs.NewReportJob(uuid.New(), finance.PeriodWeekly, time.Now())
		if err := q.PublishReportJob(ctx, job); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not delivered within 2s")
	}
}

func TestQueue_RetriesFailedJob(t *testing.T) {
	q := NewQueue(8, 1)
	defer q.Close()

	var calls atomic.Int64
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := q.Start(ctx, func(_ context.Context, job *jobs.ReportJob) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := jobs.NewReportJob(uuid.New(), finance.PeriodMonthly, time.Now())
	job.MaxRetries = 2
	if err := q.PublishReportJob(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// The retry is re-enqueued after a one second backoff.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried within 5s")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("handler calls = %d, want 2", n)
	}
	if job.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", job.RetryCount)
	}
}

func TestQueue_InvalidPeriodIsNotRetried(t *testing.T) {
	q := NewQueue(8, 1)
	defer q.Close()

	var calls atomic.Int64
	ran := make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := q.Start(ctx, func(_ context.Context, job *jobs.ReportJob) error {
		calls.Add(1)
		ran <- struct{}{}
		return fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, job.Period)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := jobs.NewReportJob(uuid.New(), finance.PeriodKind("bogus"), time.Now())
	job.MaxRetries = 2
	if err := q.PublishReportJob(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed within 2s")
	}

	// A retry would land after the one second backoff; give it room to show up.
	select {
	case <-ran:
		t.Fatalf("invalid-period job ran again, handler calls = %d", calls.Load())
	case <-time.After(1500 * time.Millisecond):
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("handler calls = %d, want 1", n)
	}
	if job.Status != jobs.JobStatusFailed {
		t.Fatalf("status = %s, want %s", job.Status, jobs.JobStatusFailed)
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, 1)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	job := jobs.NewReportJob(uuid.New(), finance.PeriodWeekly, time.Now())
	if err := q.PublishReportJob(context.Background(), job); err == nil {
		t.Fatal("expected publish on closed queue to fail")
	}
}

func TestQueue_StopWaitsForWorkers(t *testing.T) {
	q := NewQueue(1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	ctx := context.Background()
	err := q.Start(ctx, func(_ context.Context, _ *jobs.ReportJob) error {
		close(started)
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := q.PublishReportJob(ctx, jobs.NewReportJob(uuid.New(), finance.PeriodWeekly, time.Now())); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	stopErr := make(chan error, 1)
	go func() {
		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		stopErr <- q.Stop(stopCtx)
	}()

	// Stop must block while the handler is still running.
	select {
	case err := <-stopErr:
		t.Fatalf("stop returned %v before handler finished", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-stopErr; err != nil {
		t.Fatalf("stop: %v", err)
	}
}
