package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
	"github.com/sehyunkim/finbook/internal/jobs"
)

// Bucketing selects how report spending is grouped.
type Bucketing string

const (
	// BucketCategory groups all transactions by spending category.
	BucketCategory Bucketing = "category"
	// BucketDate groups withdrawals by calendar date.
	BucketDate Bucketing = "date"
)

// Repo provides the reads the report builder needs.
type Repo interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	ListActiveUsers(ctx context.Context) ([]finance.User, error)
	TransactionsInWindow(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]finance.Transaction, error)
	ListSpendingReports(ctx context.Context, userID uuid.UUID) ([]finance.SpendingReport, error)
}

// Writer persists reports. The upsert is keyed by user, period kind, and
// generated date, so rebuilding a report replaces its payload in place.
type Writer interface {
	UpsertSpendingReport(ctx context.Context, r finance.SpendingReport) (finance.SpendingReport, error)
}

// Service builds and schedules spending reports.
type Service struct {
	repo       Repo
	writer     Writer
	publisher  jobs.Publisher
	bucketing  Bucketing
	loc        *time.Location
	maxRetries int
	fanout     int
}

func New(repo Repo, writer Writer, publisher jobs.Publisher, bucketing Bucketing, loc *time.Location, maxRetries int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if bucketing == "" {
		bucketing = BucketCategory
	}
	return &Service{
		repo:       repo,
		writer:     writer,
		publisher:  publisher,
		bucketing:  bucketing,
		loc:        loc,
		maxRetries: maxRetries,
		fanout:     8,
	}
}

type categoryPayload struct {
	Categories []string  `json:"categories"`
	Spending   []float64 `json:"spending"`
}

type datePayload struct {
	Dates    []string  `json:"dates"`
	Spending []float64 `json:"spending"`
}

// Generate builds one user's report for the window containing asOf and
// upserts it. An empty window still produces a report with empty buckets.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, kind finance.PeriodKind, asOf time.Time) (finance.SpendingReport, error) {
	if userID == uuid.Nil {
		return finance.SpendingReport{}, fmt.Errorf("%w: user id is required", errs.ErrInvalid)
	}

	from, to, err := Window(kind, asOf, s.loc)
	if err != nil {
		return finance.SpendingReport{}, err
	}

	txs, err := s.repo.TransactionsInWindow(ctx, userID, from, to)
	if err != nil {
		return finance.SpendingReport{}, err
	}

	var payload any
	switch s.bucketing {
	case BucketDate:
		payload = buildDatePayload(txs, s.loc)
	default:
		payload = buildCategoryPayload(txs)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return finance.SpendingReport{}, fmt.Errorf("marshal report payload: %w", err)
	}

	local := asOf.In(s.loc)
	rpt := finance.SpendingReport{
		ID:            uuid.New(),
		UserID:        userID,
		ReportType:    kind,
		GeneratedDate: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
		Data:          data,
		CreatedAt:     time.Now().UTC(),
	}
	return s.writer.UpsertSpendingReport(ctx, rpt)
}

// List returns a user's stored reports.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]finance.SpendingReport, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", errs.ErrInvalid)
	}
	return s.repo.ListSpendingReports(ctx, userID)
}

// Handler adapts Generate into a job handler for queue consumers.
func (s *Service) Handler() jobs.Handler {
	return func(ctx context.Context, job *jobs.ReportJob) error {
		if !finance.ValidPeriodKind(job.Period) {
			return fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, job.Period)
		}
		asOf := job.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		_, err := s.Generate(ctx, job.UserID, job.Period, asOf)
		return err
	}
}

// Enqueue publishes a single report job for one user.
func (s *Service) Enqueue(ctx context.Context, userID uuid.UUID, kind finance.PeriodKind, asOf time.Time) (*jobs.ReportJob, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", errs.ErrInvalid)
	}
	if !finance.ValidPeriodKind(kind) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, kind)
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("no job publisher configured")
	}

	// Reject unknown users here rather than letting the job fail downstream.
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown user", errs.ErrNotFound)
	}

	job := jobs.NewReportJob(userID, kind, asOf)
	job.MaxRetries = s.maxRetries
	if err := s.publisher.PublishReportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("publish report job: %w", err)
	}
	return job, nil
}

// ScheduleFailure records one user whose job could not be published.
type ScheduleFailure struct {
	UserID uuid.UUID
	Err    error
}

// ScheduleResult summarises a fan-out run.
type ScheduleResult struct {
	Published int
	Failures  []ScheduleFailure
}

// ScheduleAll publishes one report job per active user. A failure for one
// user is recorded and does not stop the fan-out for the rest.
func (s *Service) ScheduleAll(ctx context.Context, kind finance.PeriodKind, asOf time.Time) (ScheduleResult, error) {
	if !finance.ValidPeriodKind(kind) {
		return ScheduleResult{}, fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, kind)
	}
	if s.publisher == nil {
		return ScheduleResult{}, fmt.Errorf("no job publisher configured")
	}

	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("list active users: %w", err)
	}

	var (
		mu     sync.Mutex
		result ScheduleResult
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for _, u := range users {
		g.Go(func() error {
			job := jobs.NewReportJob(u.ID, kind, asOf)
			job.MaxRetries = s.maxRetries
			err := s.publisher.PublishReportJob(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, ScheduleFailure{UserID: u.ID, Err: err})
				return nil
			}
			result.Published++
			return nil
		})
	}
	_ = g.Wait()
	return result, nil
}

func buildCategoryPayload(txs []finance.Transaction) categoryPayload {
	sums := make(map[finance.Category]float64)
	for _, t := range txs {
		sums[finance.ReportCategory(t)] += finance.MajorUnits(t.Amount)
	}

	labels := make([]string, 0, len(sums))
	for c := range sums {
		labels = append(labels, string(c))
	}
	sort.Strings(labels)

	p := categoryPayload{Categories: []string{}, Spending: []float64{}}
	for _, l := range labels {
		p.Categories = append(p.Categories, l)
		p.Spending = append(p.Spending, round2(sums[finance.Category(l)]))
	}
	return p
}

func buildDatePayload(txs []finance.Transaction, loc *time.Location) datePayload {
	sums := make(map[string]float64)
	for _, t := range txs {
		if t.Type != finance.TransactionWithdraw {
			continue
		}
		day := t.CreatedAt.In(loc).Format("2006-01-02")
		sums[day] += finance.MajorUnits(t.Amount)
	}

	days := make([]string, 0, len(sums))
	for d := range sums {
		days = append(days, d)
	}
	sort.Strings(days)

	p := datePayload{Dates: []string{}, Spending: []float64{}}
	for _, d := range days {
		p.Dates = append(p.Dates, d)
		p.Spending = append(p.Spending, round2(sums[d]))
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
