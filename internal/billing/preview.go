package billing

import (
	"time"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Preview composes period resolution, pro-rata scaling, and totals into the
// full picture of what generating a billing document now would produce. It is
// pure: nothing is persisted, no identifiers or document numbers assigned.
//
// Recurring cycles bill from the day after the last billed date, or from the
// service start date when nothing has been billed yet. One-off services bill
// a single day at asOf.
func Preview(def Definition, asOf time.Time) (PreviewResult, error) {
	if err := validateLineItems(def.Items); err != nil {
		return PreviewResult{}, err
	}

	reference := referenceDate(def, asOf)
	period, err := ResolvePeriod(def.Cycle, reference, def.EndDate)
	if err != nil {
		return PreviewResult{}, err
	}

	lines := ApplyProRata(def.Items, period)
	totals, err := TotalsFromLines(lines, def.TaxRatePercent)
	if err != nil {
		return PreviewResult{}, err
	}

	return PreviewResult{
		Period:         period,
		Lines:          lines,
		Totals:         totals,
		Currency:       def.Currency,
		ProRataApplied: !period.IsFullCycle(),
	}, nil
}

func referenceDate(def Definition, asOf time.Time) time.Time {
	if def.Cycle.Type == enums.CycleTypeOneOff {
		return DateOf(asOf)
	}
	if def.LastBilledAt != nil {
		return DateOf(*def.LastBilledAt).AddDate(0, 0, 1)
	}
	return DateOf(def.StartDate)
}
