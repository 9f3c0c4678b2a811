package enums

import "fmt"

// CycleType defines how a service agreement recurs.
type CycleType string

const (
	CycleTypeMonthly      CycleType = "monthly"
	CycleTypeWeekly       CycleType = "weekly"
	CycleTypeYearly       CycleType = "yearly"
	CycleTypeIntervalDays CycleType = "interval_days"
	CycleTypeOneOff       CycleType = "one_off"
)

var validCycleTypes = []CycleType{
	CycleTypeMonthly,
	CycleTypeWeekly,
	CycleTypeYearly,
	CycleTypeIntervalDays,
	CycleTypeOneOff,
}

// String implements fmt.Stringer.
func (c CycleType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CycleType.
func (c CycleType) IsValid() bool {
	for _, candidate := range validCycleTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsRecurring reports whether the cycle produces more than one billing period.
func (c CycleType) IsRecurring() bool {
	return c.IsValid() && c != CycleTypeOneOff
}

// ParseCycleType converts raw input into a CycleType.
func ParseCycleType(value string) (CycleType, error) {
	for _, candidate := range validCycleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cycle type %q", value)
}
