package enums

import "fmt"

// MilestoneStatus captures whether a milestone has been reached.
type MilestoneStatus string

const (
	MilestoneStatusUpcoming MilestoneStatus = "upcoming"
	MilestoneStatusReached  MilestoneStatus = "reached"
	MilestoneStatusMissed   MilestoneStatus = "missed"
)

var validMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusUpcoming,
	MilestoneStatusReached,
	MilestoneStatusMissed,
}

// String implements fmt.Stringer.
func (m MilestoneStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m MilestoneStatus) IsValid() bool {
	for _, candidate := range validMilestoneStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMilestoneStatus converts raw input into a MilestoneStatus.
func ParseMilestoneStatus(value string) (MilestoneStatus, error) {
	for _, candidate := range validMilestoneStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone status %q", value)
}
