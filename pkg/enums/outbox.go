package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateInvoice    OutboxAggregateType = "invoice"
	AggregatePayment    OutboxAggregateType = "payment"
	AggregateSettlement OutboxAggregateType = "settlement"
	AggregateAgreement  OutboxAggregateType = "service_agreement"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInvoice,
	AggregatePayment,
	AggregateSettlement,
	AggregateAgreement,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInvoiceCreated       OutboxEventType = "invoice_created"
	EventInvoiceStatusChanged OutboxEventType = "invoice_status_changed"
	EventInvoiceOverdue       OutboxEventType = "invoice_overdue"
	EventPaymentCreated       OutboxEventType = "payment_created"
	EventPaymentStatusChanged OutboxEventType = "payment_status_changed"
	EventSettlementApproved   OutboxEventType = "settlement_approved"
	EventSettlementPaid       OutboxEventType = "settlement_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInvoiceCreated,
	EventInvoiceStatusChanged,
	EventInvoiceOverdue,
	EventPaymentCreated,
	EventPaymentStatusChanged,
	EventSettlementApproved,
	EventSettlementPaid,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
