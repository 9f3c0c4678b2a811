package enums

import "fmt"

// ServiceDirection distinguishes who bills whom under a service agreement.
type ServiceDirection string

const (
	// ServiceDirectionOutgoing means the company bills the stakeholder (produces invoices).
	ServiceDirectionOutgoing ServiceDirection = "outgoing"
	// ServiceDirectionIncoming means the stakeholder bills the company (produces payments).
	ServiceDirectionIncoming ServiceDirection = "incoming"
)

var validServiceDirections = []ServiceDirection{
	ServiceDirectionOutgoing,
	ServiceDirectionIncoming,
}

// String implements fmt.Stringer.
func (s ServiceDirection) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ServiceDirection) IsValid() bool {
	for _, candidate := range validServiceDirections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceDirection converts raw input into a ServiceDirection.
func ParseServiceDirection(value string) (ServiceDirection, error) {
	for _, candidate := range validServiceDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service direction %q", value)
}
