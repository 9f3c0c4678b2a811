package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestResolvePeriod_Monthly(t *testing.T) {
	cases := []struct {
		name      string
		reference time.Time
		wantEnd   time.Time
		wantTotal int
	}{
		{"first of march", date(2024, time.March, 1), date(2024, time.March, 31), 31},
		{"mid january", date(2024, time.January, 5), date(2024, time.February, 4), 31},
		{"february leap", date(2024, time.February, 1), date(2024, time.February, 29), 29},
		{"february non leap", date(2023, time.February, 1), date(2023, time.February, 28), 28},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cycle := Cycle{Type: enums.CycleTypeMonthly, DayOfMonth: 1}
			period, err := ResolvePeriod(cycle, tc.reference, nil)
			if err != nil {
				t.Fatalf("ResolvePeriod returned error: %v", err)
			}
			if !period.Start.Equal(tc.reference) {
				t.Fatalf("start = %v, want %v", period.Start, tc.reference)
			}
			if !period.End.Equal(tc.wantEnd) {
				t.Fatalf("end = %v, want %v", period.End, tc.wantEnd)
			}
			if period.TotalCycleDays != tc.wantTotal {
				t.Fatalf("total cycle days = %d, want %d", period.TotalCycleDays, tc.wantTotal)
			}
			if !period.IsFullCycle() {
				t.Fatal("unclamped monthly period should be a full cycle")
			}
		})
	}
}

func TestResolvePeriod_Weekly(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeWeekly, DayOfWeek: 1}
	period, err := ResolvePeriod(cycle, date(2024, time.March, 4), nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.End.Equal(date(2024, time.March, 10)) {
		t.Fatalf("end = %v, want 2024-03-10", period.End)
	}
	if period.TotalCycleDays != 7 {
		t.Fatalf("total cycle days = %d, want 7", period.TotalCycleDays)
	}
}

func TestResolvePeriod_Yearly(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeYearly, DayOfMonth: 1, MonthOfYear: 3}

	period, err := ResolvePeriod(cycle, date(2024, time.March, 1), nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.End.Equal(date(2025, time.February, 28)) {
		t.Fatalf("end = %v, want 2025-02-28", period.End)
	}
	if period.TotalCycleDays != 365 {
		t.Fatalf("total cycle days = %d, want 365", period.TotalCycleDays)
	}

	leap, err := ResolvePeriod(cycle, date(2023, time.March, 1), nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !leap.End.Equal(date(2024, time.February, 29)) {
		t.Fatalf("end = %v, want 2024-02-29", leap.End)
	}
	if leap.TotalCycleDays != 366 {
		t.Fatalf("total cycle days = %d, want 366", leap.TotalCycleDays)
	}
}

func TestResolvePeriod_IntervalDays(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeIntervalDays, IntervalDays: 1}
	period, err := ResolvePeriod(cycle, date(2024, time.June, 10), nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.Start.Equal(period.End) {
		t.Fatalf("single-day interval should have start == end, got %v..%v", period.Start, period.End)
	}
	if period.TotalCycleDays != 1 {
		t.Fatalf("total cycle days = %d, want 1", period.TotalCycleDays)
	}
}

func TestResolvePeriod_OneOff(t *testing.T) {
	period, err := ResolvePeriod(Cycle{Type: enums.CycleTypeOneOff}, date(2024, time.June, 10), nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.Start.Equal(date(2024, time.June, 10)) || !period.End.Equal(period.Start) {
		t.Fatalf("one-off should resolve to a single day, got %v..%v", period.Start, period.End)
	}
	if period.TotalCycleDays != 1 {
		t.Fatalf("total cycle days = %d, want 1", period.TotalCycleDays)
	}
}

func TestResolvePeriod_ClampsToServiceEnd(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeMonthly, DayOfMonth: 1}
	serviceEnd := date(2024, time.March, 15)

	period, err := ResolvePeriod(cycle, date(2024, time.March, 1), &serviceEnd)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.End.Equal(serviceEnd) {
		t.Fatalf("end = %v, want clamp to %v", period.End, serviceEnd)
	}
	if period.TotalCycleDays != 31 {
		t.Fatalf("total cycle days = %d, want 31", period.TotalCycleDays)
	}
	if period.ActualDays() != 15 {
		t.Fatalf("actual days = %d, want 15", period.ActualDays())
	}
	if period.IsFullCycle() {
		t.Fatal("clamped period must not report a full cycle")
	}
}

func TestResolvePeriod_ServiceEndAfterPeriodIsIgnored(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeWeekly, DayOfWeek: 3}
	serviceEnd := date(2024, time.December, 31)

	period, err := ResolvePeriod(cycle, date(2024, time.March, 4), &serviceEnd)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.End.Equal(date(2024, time.March, 10)) {
		t.Fatalf("end = %v, want 2024-03-10", period.End)
	}
}

func TestResolvePeriod_ServiceEndBeforeStart(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeMonthly, DayOfMonth: 1}
	serviceEnd := date(2024, time.February, 20)

	_, err := ResolvePeriod(cycle, date(2024, time.March, 1), &serviceEnd)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestResolvePeriod_InvalidConfigurations(t *testing.T) {
	cases := []struct {
		name  string
		cycle Cycle
	}{
		{"monthly day zero", Cycle{Type: enums.CycleTypeMonthly}},
		{"monthly day 29", Cycle{Type: enums.CycleTypeMonthly, DayOfMonth: 29}},
		{"weekly day zero", Cycle{Type: enums.CycleTypeWeekly}},
		{"weekly day 8", Cycle{Type: enums.CycleTypeWeekly, DayOfWeek: 8}},
		{"yearly month zero", Cycle{Type: enums.CycleTypeYearly, DayOfMonth: 1}},
		{"yearly month 13", Cycle{Type: enums.CycleTypeYearly, DayOfMonth: 1, MonthOfYear: 13}},
		{"interval zero", Cycle{Type: enums.CycleTypeIntervalDays}},
		{"unknown type", Cycle{Type: enums.CycleType("quarterly")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolvePeriod(tc.cycle, date(2024, time.March, 1), nil)
			if !errors.Is(err, ErrInvalidCycleConfiguration) {
				t.Fatalf("expected ErrInvalidCycleConfiguration, got %v", err)
			}
		})
	}
}

func TestResolvePeriod_DropsTimeOfDay(t *testing.T) {
	cycle := Cycle{Type: enums.CycleTypeWeekly, DayOfWeek: 1}
	reference := time.Date(2024, time.March, 4, 17, 45, 12, 0, time.UTC)

	period, err := ResolvePeriod(cycle, reference, nil)
	if err != nil {
		t.Fatalf("ResolvePeriod returned error: %v", err)
	}
	if !period.Start.Equal(date(2024, time.March, 4)) {
		t.Fatalf("start = %v, want midnight UTC", period.Start)
	}
	if period.ActualDays() != 7 {
		t.Fatalf("actual days = %d, want 7", period.ActualDays())
	}
}
