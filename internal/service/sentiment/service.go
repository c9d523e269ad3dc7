package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/classifier"
	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// Repo provides the reads the sentiment service needs.
type Repo interface {
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	SentimentByTransaction(ctx context.Context, txID uuid.UUID) (finance.SentimentAnalysis, bool, error)
	ListSentiments(ctx context.Context, userID uuid.UUID) ([]finance.SentimentAnalysis, error)
}

// Writer persists classifier verdicts. The store enforces one verdict per
// transaction and returns errs.ErrAlreadyAnalyzed on a duplicate.
type Writer interface {
	CreateSentiment(ctx context.Context, sa finance.SentimentAnalysis) (finance.SentimentAnalysis, error)
}

// AnalyzeInput carries one classification request.
type AnalyzeInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	Text          string
}

// Service runs the external classifier over transaction notes and stores the
// verdicts.
type Service struct {
	repo       Repo
	writer     Writer
	classifier classifier.Classifier
}

func New(repo Repo, writer Writer, c classifier.Classifier) Service {
	return Service{repo: repo, writer: writer, classifier: c}
}

// ValidateAnalyze checks the request without touching the classifier.
func (s Service) ValidateAnalyze(in AnalyzeInput) error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", errs.ErrInvalid)
	}
	if in.TransactionID == uuid.Nil {
		return fmt.Errorf("%w: transaction id is required", errs.ErrInvalid)
	}
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: text is required", errs.ErrInvalid)
	}
	return nil
}

// Analyze classifies the text and stores the verdict against the
// transaction. The transaction must belong to the user, and a transaction is
// analyzed at most once. The duplicate check runs before the classifier so a
// repeat request never spends a model call.
func (s Service) Analyze(ctx context.Context, in AnalyzeInput) (finance.SentimentAnalysis, error) {
	if err := s.ValidateAnalyze(in); err != nil {
		return finance.SentimentAnalysis{}, err
	}

	if _, err := s.repo.GetTransaction(ctx, in.UserID, in.TransactionID); err != nil {
		return finance.SentimentAnalysis{}, err
	}
	if _, exists, err := s.repo.SentimentByTransaction(ctx, in.TransactionID); err != nil {
		return finance.SentimentAnalysis{}, err
	} else if exists {
		return finance.SentimentAnalysis{}, errs.ErrAlreadyAnalyzed
	}

	label, score, err := s.classifier.Classify(ctx, in.Text)
	if err != nil {
		return finance.SentimentAnalysis{}, err
	}

	sa := finance.SentimentAnalysis{
		ID:            uuid.New(),
		TransactionID: in.TransactionID,
		Text:          in.Text,
		Sentiment:     label,
		Score:         score,
		CreatedAt:     time.Now().UTC(),
	}
	return s.writer.CreateSentiment(ctx, sa)
}

// Get returns the stored verdict for one of the user's transactions.
func (s Service) Get(ctx context.Context, userID, txID uuid.UUID) (finance.SentimentAnalysis, error) {
	if _, err := s.repo.GetTransaction(ctx, userID, txID); err != nil {
		return finance.SentimentAnalysis{}, err
	}
	sa, exists, err := s.repo.SentimentByTransaction(ctx, txID)
	if err != nil {
		return finance.SentimentAnalysis{}, err
	}
	if !exists {
		return finance.SentimentAnalysis{}, errs.ErrNotFound
	}
	return sa, nil
}

// List returns all verdicts across the user's transactions.
func (s Service) List(ctx context.Context, userID uuid.UUID) ([]finance.SentimentAnalysis, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", errs.ErrInvalid)
	}
	return s.repo.ListSentiments(ctx, userID)
}
