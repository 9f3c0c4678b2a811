package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// InvoiceCreatedEvent signals a new invoice generated from an agreement.
type InvoiceCreatedEvent struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	AgreementID   uuid.UUID `json:"agreement_id"`
	StakeholderID uuid.UUID `json:"stakeholder_id"`
	Currency      string    `json:"currency"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	IsProRata     bool      `json:"is_pro_rata"`
	TotalAmount   string    `json:"total_amount"`
}

// InvoiceStatusChangedEvent is emitted on every invoice status transition.
type InvoiceStatusChangedEvent struct {
	InvoiceID     uuid.UUID           `json:"invoice_id"`
	InvoiceNumber string              `json:"invoice_number"`
	StakeholderID uuid.UUID           `json:"stakeholder_id"`
	FromStatus    enums.InvoiceStatus `json:"from_status"`
	ToStatus      enums.InvoiceStatus `json:"to_status"`
}

// InvoiceOverdueEvent is emitted once when an invoice passes its due date.
type InvoiceOverdueEvent struct {
	InvoiceID     uuid.UUID `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	StakeholderID uuid.UUID `json:"stakeholderId"`
	DueDate       time.Time `json:"dueDate"`
	OverdueAt     time.Time `json:"overdueAt"`
	TotalAmount   string    `json:"totalAmount"`
}

// PaymentCreatedEvent signals a new outgoing payment generated from an agreement.
type PaymentCreatedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	PaymentNumber string    `json:"payment_number"`
	AgreementID   uuid.UUID `json:"agreement_id"`
	StakeholderID uuid.UUID `json:"stakeholder_id"`
	Currency      string    `json:"currency"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	TotalAmount   string    `json:"total_amount"`
}

// PaymentStatusChangedEvent is emitted on every payment status transition.
type PaymentStatusChangedEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	PaymentNumber string              `json:"payment_number"`
	StakeholderID uuid.UUID           `json:"stakeholder_id"`
	FromStatus    enums.PaymentStatus `json:"from_status"`
	ToStatus      enums.PaymentStatus `json:"to_status"`
}

// SettlementApprovedEvent is emitted when an expense claim is approved.
type SettlementApprovedEvent struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	ClaimantID   uuid.UUID `json:"claimant_id"`
	ApproverID   uuid.UUID `json:"approver_id"`
	TotalAmount  string    `json:"total_amount"`
	Currency     string    `json:"currency"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// SettlementPaidEvent is emitted when an approved claim is reimbursed.
type SettlementPaidEvent struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	ClaimantID   uuid.UUID `json:"claimant_id"`
	TotalAmount  string    `json:"total_amount"`
	Currency     string    `json:"currency"`
	PaidAt       time.Time `json:"paid_at"`
}
