package billing

import (
	"testing"
	"time"
)

func TestApplyProRata_IdentityOnFullCycle(t *testing.T) {
	items := []LineItem{
		{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec("1000")},
		{Description: "Hosting", Quantity: dec("3"), UnitPrice: dec("25.50")},
	}
	period := Period{
		Start:          date(2024, time.March, 1),
		End:            date(2024, time.March, 31),
		TotalCycleDays: 31,
	}

	lines := ApplyProRata(items, period)
	if len(lines) != len(items) {
		t.Fatalf("expected %d lines, got %d", len(items), len(lines))
	}
	for i, line := range lines {
		if !line.Amount.Equal(items[i].Amount()) {
			t.Fatalf("line %d amount = %s, want unmodified %s", i, line.Amount, items[i].Amount())
		}
		if line.ProRated() {
			t.Fatalf("line %d should carry no pro-rata annotation on a full cycle", i)
		}
	}
}

func TestApplyProRata_HalfPeriod(t *testing.T) {
	items := []LineItem{{Description: "Retainer", Quantity: dec("1"), UnitPrice: dec("100")}}
	period := Period{
		Start:          date(2024, time.June, 1),
		End:            date(2024, time.June, 15),
		TotalCycleDays: 30,
	}

	lines := ApplyProRata(items, period)
	if !lines[0].Amount.Equal(dec("50.00")) {
		t.Fatalf("amount = %s, want 50.00", lines[0].Amount)
	}
	if lines[0].ProRataDays != 15 || lines[0].ProRataTotalDays != 30 {
		t.Fatalf("stamped %d/%d, want 15/30", lines[0].ProRataDays, lines[0].ProRataTotalDays)
	}
}

func TestApplyProRata_KeepsQuantityAndUnitPrice(t *testing.T) {
	items := []LineItem{{Description: "Retainer", Quantity: dec("2"), UnitPrice: dec("500")}}
	period := Period{
		Start:          date(2024, time.March, 1),
		End:            date(2024, time.March, 15),
		TotalCycleDays: 31,
	}

	line := ApplyProRata(items, period)[0]
	if !line.Quantity.Equal(dec("2")) || !line.UnitPrice.Equal(dec("500")) {
		t.Fatalf("quantity/unit price must stay original, got %s x %s", line.Quantity, line.UnitPrice)
	}
	// 1000 * 15/31 = 483.870..., rounded per line.
	if !line.Amount.Equal(dec("483.87")) {
		t.Fatalf("amount = %s, want 483.87", line.Amount)
	}
}

func TestApplyProRata_RoundsPerLine(t *testing.T) {
	items := []LineItem{
		{Description: "a", Quantity: dec("1"), UnitPrice: dec("10")},
		{Description: "b", Quantity: dec("1"), UnitPrice: dec("10")},
	}
	period := Period{
		Start:          date(2024, time.March, 1),
		End:            date(2024, time.March, 10),
		TotalCycleDays: 31,
	}

	lines := ApplyProRata(items, period)
	for i, line := range lines {
		// 10 * 10/31 = 3.2258... -> 3.23 on each line independently.
		if !line.Amount.Equal(dec("3.23")) {
			t.Fatalf("line %d amount = %s, want 3.23", i, line.Amount)
		}
	}
}
