package enums

import "fmt"

// AgreementStatus captures whether a service agreement is billable.
type AgreementStatus string

const (
	AgreementStatusActive AgreementStatus = "active"
	AgreementStatusPaused AgreementStatus = "paused"
	AgreementStatusEnded  AgreementStatus = "ended"
)

var validAgreementStatuses = []AgreementStatus{
	AgreementStatusActive,
	AgreementStatusPaused,
	AgreementStatusEnded,
}

// String implements fmt.Stringer.
func (a AgreementStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AgreementStatus) IsValid() bool {
	for _, candidate := range validAgreementStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgreementStatus converts raw input into an AgreementStatus.
func ParseAgreementStatus(value string) (AgreementStatus, error) {
	for _, candidate := range validAgreementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agreement status %q", value)
}
