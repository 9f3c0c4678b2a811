package billing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTotals_ZeroTax(t *testing.T) {
	items := []LineItem{
		{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec("1000")},
		{Description: "Support", Quantity: dec("2"), UnitPrice: dec("150.50")},
	}

	totals, err := ComputeTotals(items, decimal.Zero)
	if err != nil {
		t.Fatalf("ComputeTotals returned error: %v", err)
	}
	if !totals.Subtotal.Equal(dec("1301.00")) {
		t.Fatalf("subtotal = %s, want 1301.00", totals.Subtotal)
	}
	if !totals.TaxAmount.IsZero() {
		t.Fatalf("tax amount = %s, want 0", totals.TaxAmount)
	}
	if !totals.Total.Equal(totals.Subtotal) {
		t.Fatalf("total = %s, want subtotal %s", totals.Total, totals.Subtotal)
	}
}

func TestComputeTotals_TotalIsSubtotalPlusTax(t *testing.T) {
	items := []LineItem{
		{Description: "Consulting", Quantity: dec("3"), UnitPrice: dec("333.33")},
		{Description: "Licenses", Quantity: dec("7"), UnitPrice: dec("19.99")},
	}

	totals, err := ComputeTotals(items, dec("8.25"))
	if err != nil {
		t.Fatalf("ComputeTotals returned error: %v", err)
	}
	if !totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount)) {
		t.Fatalf("total %s != subtotal %s + tax %s", totals.Total, totals.Subtotal, totals.TaxAmount)
	}
	if totals.TaxAmount.Exponent() < -2 {
		t.Fatalf("tax amount %s not rounded to 2 decimals", totals.TaxAmount)
	}
}

func TestComputeTotals_RecomputesAmounts(t *testing.T) {
	// 0.1 * 0.35 = 0.035 per item; summed before rounding the aggregate.
	items := []LineItem{
		{Description: "a", Quantity: dec("0.1"), UnitPrice: dec("0.35")},
		{Description: "b", Quantity: dec("0.1"), UnitPrice: dec("0.35")},
	}

	totals, err := ComputeTotals(items, decimal.Zero)
	if err != nil {
		t.Fatalf("ComputeTotals returned error: %v", err)
	}
	if !totals.Subtotal.Equal(dec("0.07")) {
		t.Fatalf("subtotal = %s, want 0.07 (aggregate rounding)", totals.Subtotal)
	}
}

func TestComputeTotals_RejectsBadItems(t *testing.T) {
	cases := []struct {
		name  string
		items []LineItem
	}{
		{"empty description", []LineItem{{Description: "  ", Quantity: dec("1"), UnitPrice: dec("1")}}},
		{"negative quantity", []LineItem{{Description: "x", Quantity: dec("-1"), UnitPrice: dec("1")}}},
		{"negative unit price", []LineItem{{Description: "x", Quantity: dec("1"), UnitPrice: dec("-0.01")}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items, decimal.Zero)
			if !errors.Is(err, ErrInvalidLineItem) {
				t.Fatalf("expected ErrInvalidLineItem, got %v", err)
			}
		})
	}
}

func TestComputeTotals_RejectsTaxRateOutOfRange(t *testing.T) {
	items := []LineItem{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1")}}

	for _, rate := range []string{"-1", "100.01"} {
		if _, err := ComputeTotals(items, dec(rate)); !errors.Is(err, ErrInvalidLineItem) {
			t.Fatalf("rate %s: expected ErrInvalidLineItem, got %v", rate, err)
		}
	}
}

func TestComputeTotals_EmptyItems(t *testing.T) {
	totals, err := ComputeTotals(nil, dec("10"))
	if err != nil {
		t.Fatalf("ComputeTotals returned error: %v", err)
	}
	if !totals.Subtotal.IsZero() || !totals.Total.IsZero() {
		t.Fatalf("expected zero totals, got subtotal %s total %s", totals.Subtotal, totals.Total)
	}
}
