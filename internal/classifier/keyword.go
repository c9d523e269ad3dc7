package classifier

import (
	"context"
	"strings"

	"github.com/sehyunkim/finbook/internal/finance"
)

// Keyword is a deterministic classifier for development and tests. It counts
// sentiment-bearing words and never calls out to a model.
type Keyword struct{}

var positiveWords = []string{"great", "happy", "love", "good", "nice", "worth", "excellent"}
var negativeWords = []string{"bad", "waste", "regret", "hate", "awful", "expensive", "terrible"}

func (Keyword) Classify(_ context.Context, text string) (finance.Sentiment, float64, error) {
	lower := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return finance.SentimentPositive, 0.6 + 0.1*float64(min(pos-neg, 3)), nil
	case neg > pos:
		return finance.SentimentNegative, 0.6 + 0.1*float64(min(neg-pos, 3)), nil
	default:
		return finance.SentimentNeutral, 0.5, nil
	}
}

var _ Classifier = Keyword{}
