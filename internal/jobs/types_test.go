package jobs

import (
	"fmt"
	"testing"

	"github.com/sehyunkim/finbook/internal/errs"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid period", errs.ErrInvalidPeriod, false},
		{"wrapped invalid period", fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, "bogus"), false},
		{"not found", fmt.Errorf("%w: unknown user", errs.ErrNotFound), false},
		{"transient", fmt.Errorf("connection reset"), true},
		{"wrapped transient", fmt.Errorf("upsert: %w", fmt.Errorf("timeout")), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
