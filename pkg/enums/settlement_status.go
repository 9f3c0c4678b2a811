package enums

import "fmt"

// SettlementStatus tracks an expense claim through approval and payout.
type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "draft"
	SettlementStatusSubmitted SettlementStatus = "submitted"
	SettlementStatusApproved  SettlementStatus = "approved"
	SettlementStatusRejected  SettlementStatus = "rejected"
	SettlementStatusPaid      SettlementStatus = "paid"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusDraft,
	SettlementStatusSubmitted,
	SettlementStatusApproved,
	SettlementStatusRejected,
	SettlementStatusPaid,
}

var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementStatusDraft:     {SettlementStatusSubmitted},
	SettlementStatusSubmitted: {SettlementStatusApproved, SettlementStatusRejected},
	SettlementStatusApproved:  {SettlementStatusPaid},
	SettlementStatusRejected:  {SettlementStatusDraft},
	SettlementStatusPaid:      {},
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the workflow allows moving to next.
func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	for _, candidate := range settlementTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}
