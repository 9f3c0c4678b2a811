package billing

import "github.com/shopspring/decimal"

// ApplyProRata resolves line items against a billing period. Full cycles pass
// through untouched; partial periods scale each amount by actual over total
// days, rounded to 2 decimal places per line because each adjusted line is
// displayed and persisted on its own. Quantity and unit price keep their
// original values so the applied ratio stays reconstructable.
func ApplyProRata(items []LineItem, period Period) []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(items))

	if period.IsFullCycle() {
		for _, item := range items {
			lines = append(lines, InvoiceLine{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Amount:      item.Amount(),
			})
		}
		return lines
	}

	actual := decimal.NewFromInt(int64(period.ActualDays()))
	total := decimal.NewFromInt(int64(period.TotalCycleDays))

	for _, item := range items {
		scaled := item.Amount().Mul(actual).Div(total).Round(2)
		lines = append(lines, InvoiceLine{
			Description:      item.Description,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			Amount:           scaled,
			ProRataDays:      period.ActualDays(),
			ProRataTotalDays: period.TotalCycleDays,
		})
	}
	return lines
}
