package report

import (
	"time"

	"github.com/sehyunkim/finbook/internal/errs"
	"github.com/sehyunkim/finbook/internal/finance"
)

// Window returns the inclusive reporting window containing asOf, evaluated
// in loc. Weekly windows run Monday 00:00:00.000000 through Sunday
// 23:59:59.999999; monthly windows run from the first of the month through
// the last microsecond of the month.
func Window(kind finance.PeriodKind, asOf time.Time, loc *time.Location) (time.Time, time.Time, error) {
	t := asOf.In(loc)

	switch kind {
	case finance.PeriodWeekly:
		// time.Weekday puts Sunday at 0; shift so Monday starts the week.
		offset := (int(t.Weekday()) + 6) % 7
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -offset)
		end := start.AddDate(0, 0, 7).Add(-time.Microsecond)
		return start, end, nil
	case finance.PeriodMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0).Add(-time.Microsecond)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, errs.ErrInvalidPeriod
	}
}
