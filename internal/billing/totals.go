package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals recomputes each item's amount from quantity and unit price,
// sums the subtotal, and applies the tax rate. Rounding to 2 decimal places
// happens once, on the aggregates, so per-line residue never compounds.
func ComputeTotals(items []LineItem, taxRatePercent decimal.Decimal) (Totals, error) {
	if err := validateLineItems(items); err != nil {
		return Totals{}, err
	}
	if err := validateTaxRate(taxRatePercent); err != nil {
		return Totals{}, err
	}

	amounts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.Amount())
	}
	return totalsFromAmounts(amounts, taxRatePercent), nil
}

// TotalsFromLines aggregates already-resolved invoice lines. Pro-rated lines
// carry per-line rounded amounts, which are summed as-is.
func TotalsFromLines(lines []InvoiceLine, taxRatePercent decimal.Decimal) (Totals, error) {
	if err := validateTaxRate(taxRatePercent); err != nil {
		return Totals{}, err
	}

	amounts := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		amounts = append(amounts, line.Amount)
	}
	return totalsFromAmounts(amounts, taxRatePercent), nil
}

func totalsFromAmounts(amounts []decimal.Decimal, taxRatePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, amount := range amounts {
		subtotal = subtotal.Add(amount)
	}
	subtotal = subtotal.Round(2)

	taxAmount := subtotal.Mul(taxRatePercent).Div(oneHundred).Round(2)

	return Totals{
		Subtotal:  subtotal,
		TaxRate:   taxRatePercent,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}
}

func validateLineItems(items []LineItem) error {
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has an empty description", ErrInvalidLineItem, i)
		}
		if item.Quantity.IsNegative() {
			return fmt.Errorf("%w: item %d (%s) has negative quantity", ErrInvalidLineItem, i, item.Description)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d (%s) has negative unit price", ErrInvalidLineItem, i, item.Description)
		}
	}
	return nil
}

func validateTaxRate(taxRatePercent decimal.Decimal) error {
	if taxRatePercent.IsNegative() || taxRatePercent.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: tax rate %s outside 0-100", ErrInvalidLineItem, taxRatePercent)
	}
	return nil
}
