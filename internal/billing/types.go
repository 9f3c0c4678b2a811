package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Cycle describes how a recurring service repeats. Exactly one anchor field
// is active per cycle type; the rest are retained for round-trip editing.
type Cycle struct {
	Type         enums.CycleType
	DayOfMonth   int
	DayOfWeek    int
	MonthOfYear  int
	IntervalDays int
}

// LineItem is one billable component of a service. Amount is always derived
// from quantity and unit price, never trusted from stored state.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Amount returns quantity times unit price, unrounded.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Period is a concrete inclusive date range being billed. TotalCycleDays is
// the length of the full standard cycle containing the period and serves as
// the pro-rata denominator.
type Period struct {
	Start          time.Time
	End            time.Time
	TotalCycleDays int
}

// ActualDays returns the inclusive day count of [Start, End].
func (p Period) ActualDays() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// IsFullCycle reports whether the period covers its entire standard cycle.
func (p Period) IsFullCycle() bool {
	return p.ActualDays() == p.TotalCycleDays
}

// InvoiceLine is a line item resolved against a billing period. ProRataDays
// and ProRataTotalDays are stamped only when the period was partial.
type InvoiceLine struct {
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	ProRataDays      int
	ProRataTotalDays int
}

// ProRated reports whether the line carries a pro-rata annotation.
func (l InvoiceLine) ProRated() bool {
	return l.ProRataTotalDays > 0
}

// Totals aggregates a set of line amounts under a tax rate. TaxAmount and
// Total are rounded once, at this aggregate level.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Definition is the billing-relevant slice of a service agreement fed into
// Preview. EndDate caps generated periods; LastBilledAt advances the
// reference date for recurring cycles.
type Definition struct {
	Cycle          Cycle
	Items          []LineItem
	TaxRatePercent decimal.Decimal
	Currency       string
	StartDate      time.Time
	EndDate        *time.Time
	LastBilledAt   *time.Time
}

// PreviewResult is what a generated invoice or payment would contain. It is
// never persisted here; identifiers and numbering belong to the caller.
type PreviewResult struct {
	Period         Period
	Lines          []InvoiceLine
	Totals         Totals
	Currency       string
	ProRataApplied bool
}
