// Package classifier labels free-form transaction notes with a sentiment.
// The model behind the interface is opaque; callers only see the label and a
// confidence score.
package classifier

import (
	"context"

	"github.com/sehyunkim/finbook/internal/finance"
)

// Classifier labels one piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (finance.Sentiment, float64, error)
}
