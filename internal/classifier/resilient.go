package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// Resilient wraps a Classifier with a timeout and a circuit breaker. An open
// breaker or an exceeded deadline surfaces as errs.ErrClassifierUnavailable
// so callers can map it to a retryable failure.
type Resilient struct {
	inner   Classifier
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *slog.Logger
}

func NewResilient(inner Classifier, timeout time.Duration, logger *slog.Logger) *Resilient {
	r := &Resilient{inner: inner, timeout: timeout, logger: logger}

	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sentiment-classifier",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return r
}

type classifyResult struct {
	sentiment finance.Sentiment
	score     float64
}

func (r *Resilient) Classify(ctx context.Context, text string) (finance.Sentiment, float64, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.cb.Execute(func() (any, error) {
		sentiment, score, err := r.inner.Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		return classifyResult{sentiment: sentiment, score: score}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warn("circuit breaker open, classification rejected")
			return "", 0, fmt.Errorf("%w: circuit open", errs.ErrClassifierUnavailable)
		}
		if ctx.Err() != nil {
			r.logger.Warn("classification timed out", "timeout", r.timeout)
			return "", 0, fmt.Errorf("%w: %v", errs.ErrClassifierUnavailable, ctx.Err())
		}
		return "", 0, fmt.Errorf("%w: %v", errs.ErrClassifierUnavailable, err)
	}

	res := out.(classifyResult)
	return res.sentiment, res.score, nil
}

var _ Classifier = (*Resilient)(nil)
