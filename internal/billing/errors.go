package billing

import "errors"

var (
	// ErrInvalidCycleConfiguration flags a missing or out-of-range anchor
	// field for the selected cycle type.
	ErrInvalidCycleConfiguration = errors.New("invalid cycle configuration")

	// ErrInvalidLineItem flags a line item with a negative quantity or unit
	// price, an empty description, or an out-of-range tax rate.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidPeriod flags a resolved period whose start falls after its
	// end, which happens when the service ended before the reference date.
	ErrInvalidPeriod = errors.New("invalid billing period")
)
