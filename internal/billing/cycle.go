package billing

import (
	"fmt"
	"time"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// ResolvePeriod computes the billing period that starts at referenceDate for
// the given cycle. When serviceEnd is set and falls before the natural period
// end, the period is clamped, which makes it partial and subject to pro-rata
// scaling. Dates are treated as UTC calendar dates; time-of-day is dropped.
func ResolvePeriod(cycle Cycle, referenceDate time.Time, serviceEnd *time.Time) (Period, error) {
	if err := validateCycle(cycle); err != nil {
		return Period{}, err
	}

	start := DateOf(referenceDate)

	if cycle.Type == enums.CycleTypeOneOff {
		return Period{Start: start, End: start, TotalCycleDays: 1}, nil
	}

	var end time.Time
	switch cycle.Type {
	case enums.CycleTypeMonthly:
		end = start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	case enums.CycleTypeWeekly:
		end = start.AddDate(0, 0, 6)
	case enums.CycleTypeYearly:
		end = start.AddDate(1, 0, 0).AddDate(0, 0, -1)
	case enums.CycleTypeIntervalDays:
		end = start.AddDate(0, 0, cycle.IntervalDays-1)
	}

	period := Period{
		Start:          start,
		End:            end,
		TotalCycleDays: daysInclusive(start, end),
	}

	if serviceEnd != nil {
		capDate := DateOf(*serviceEnd)
		if capDate.Before(period.End) {
			period.End = capDate
		}
	}

	if period.Start.After(period.End) {
		return Period{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidPeriod,
			period.Start.Format(time.DateOnly), period.End.Format(time.DateOnly))
	}

	return period, nil
}

// ValidateCycle checks that the cycle's anchor fields are consistent with its
// type. Callers persisting cycle configuration run this before writing.
func ValidateCycle(cycle Cycle) error {
	return validateCycle(cycle)
}

func validateCycle(cycle Cycle) error {
	switch cycle.Type {
	case enums.CycleTypeMonthly:
		if cycle.DayOfMonth < 1 || cycle.DayOfMonth > 28 {
			return fmt.Errorf("%w: day of month %d outside 1-28", ErrInvalidCycleConfiguration, cycle.DayOfMonth)
		}
	case enums.CycleTypeWeekly:
		if cycle.DayOfWeek < 1 || cycle.DayOfWeek > 7 {
			return fmt.Errorf("%w: day of week %d outside 1-7", ErrInvalidCycleConfiguration, cycle.DayOfWeek)
		}
	case enums.CycleTypeYearly:
		if cycle.MonthOfYear < 1 || cycle.MonthOfYear > 12 {
			return fmt.Errorf("%w: month of year %d outside 1-12", ErrInvalidCycleConfiguration, cycle.MonthOfYear)
		}
		if cycle.DayOfMonth < 1 || cycle.DayOfMonth > 28 {
			return fmt.Errorf("%w: day of month %d outside 1-28", ErrInvalidCycleConfiguration, cycle.DayOfMonth)
		}
	case enums.CycleTypeIntervalDays:
		if cycle.IntervalDays < 1 {
			return fmt.Errorf("%w: interval days %d must be at least 1", ErrInvalidCycleConfiguration, cycle.IntervalDays)
		}
	case enums.CycleTypeOneOff:
		// no anchors
	default:
		return fmt.Errorf("%w: unknown cycle type %q", ErrInvalidCycleConfiguration, cycle.Type)
	}
	return nil
}

// DateOf strips time-of-day and normalizes to UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
