package main

import (
	"testing"
	"time"

	"github.com/sehyunkim/finbook/internal/finance"
)

func TestNextWeekly(t *testing.T) {
	tests := []struct {
		now  string
		want string
	}{
		// mid-week lands on the coming Monday
		{"2025-08-06 15:00:00", "2025-08-11 00:00:00"},
		// Monday 00:00 exactly rolls to the following week
		{"2025-08-04 00:00:00", "2025-08-11 00:00:00"},
		// Sunday night fires a few hours later
		{"2025-08-10 23:30:00", "2025-08-11 00:00:00"},
	}
	for _, tc := range tests {
		now, err := time.Parse("2006-01-02 15:04:05", tc.now)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got := nextWeekly(now)
		if got.Format("2006-01-02 15:04:05") != tc.want {
			t.Errorf("nextWeekly(%s) = %s, want %s", tc.now, got.Format("2006-01-02 15:04:05"), tc.want)
		}
		if got.Weekday() != time.Monday {
			t.Errorf("nextWeekly(%s) is a %s, want Monday", tc.now, got.Weekday())
		}
	}
}

func TestNextMonthly(t *testing.T) {
	tests := []struct {
		now  string
		want string
	}{
		{"2025-08-06 15:00:00", "2025-09-01 00:00:00"},
		// the 1st at 00:00 exactly rolls to the next month
		{"2025-08-01 00:00:00", "2025-09-01 00:00:00"},
		// year rollover
		{"2025-12-31 23:59:00", "2026-01-01 00:00:00"},
	}
	for _, tc := range tests {
		now, err := time.Parse("2006-01-02 15:04:05", tc.now)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got := nextMonthly(now)
		if got.Format("2006-01-02 15:04:05") != tc.want {
			t.Errorf("nextMonthly(%s) = %s, want %s", tc.now, got.Format("2006-01-02 15:04:05"), tc.want)
		}
	}
}

func TestNextFire(t *testing.T) {
	tests := []struct {
		name   string
		now    string
		wantAt string
		kinds  []finance.PeriodKind
	}{
		{
			name:   "weekly only",
			now:    "2025-08-06 15:00:00",
			wantAt: "2025-08-11 00:00:00",
			kinds:  []finance.PeriodKind{finance.PeriodWeekly},
		},
		{
			name:   "monthly before the next Monday",
			now:    "2025-12-30 09:00:00",
			wantAt: "2026-01-01 00:00:00",
			kinds:  []finance.PeriodKind{finance.PeriodMonthly},
		},
		{
			// 2025-09-01 is both a Monday and the 1st; both runs are due.
			name:   "coinciding boundaries fire both",
			now:    "2025-08-31 15:00:00",
			wantAt: "2025-09-01 00:00:00",
			kinds:  []finance.PeriodKind{finance.PeriodWeekly, finance.PeriodMonthly},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now, err := time.Parse("2006-01-02 15:04:05", tc.now)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			at, kinds := nextFire(now)
			if at.Format("2006-01-02 15:04:05") != tc.wantAt {
				t.Errorf("fire at %s, want %s", at.Format("2006-01-02 15:04:05"), tc.wantAt)
			}
			if len(kinds) != len(tc.kinds) {
				t.Fatalf("kinds = %v, want %v", kinds, tc.kinds)
			}
			for i := range kinds {
				if kinds[i] != tc.kinds[i] {
					t.Errorf("kinds = %v, want %v", kinds, tc.kinds)
				}
			}
		})
	}
}
