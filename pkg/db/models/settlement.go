package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Settlement is an expense claim moving through the approval workflow.
type Settlement struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClaimantID      uuid.UUID              `gorm:"column:claimant_id;type:uuid;not null;index" json:"claimant_id"`
	Title           string                 `gorm:"column:title;not null" json:"title"`
	Status          enums.SettlementStatus `gorm:"column:status;type:settlement_status;not null;default:'draft'" json:"status"`
	Currency        string                 `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	TaxRatePercent  decimal.Decimal        `gorm:"column:tax_rate_percent;type:numeric(5,2);not null;default:0" json:"tax_rate_percent"`
	SubtotalAmount  decimal.Decimal        `gorm:"column:subtotal_amount;type:numeric(12,2);not null;default:0" json:"subtotal_amount"`
	TaxAmount       decimal.Decimal        `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0" json:"tax_amount"`
	TotalAmount     decimal.Decimal        `gorm:"column:total_amount;type:numeric(12,2);not null;default:0" json:"total_amount"`
	SubmittedAt     *time.Time             `gorm:"column:submitted_at" json:"submitted_at"`
	ApprovedAt      *time.Time             `gorm:"column:approved_at" json:"approved_at"`
	RejectedAt      *time.Time             `gorm:"column:rejected_at" json:"rejected_at"`
	PaidAt          *time.Time             `gorm:"column:paid_at" json:"paid_at"`
	RejectionReason *string                `gorm:"column:rejection_reason" json:"rejection_reason"`
	Items           []SettlementLineItem   `gorm:"foreignKey:SettlementID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// SettlementLineItem captures one claimed expense row.
type SettlementLineItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SettlementID uuid.UUID       `gorm:"column:settlement_id;type:uuid;not null;index" json:"settlement_id"`
	Description  string          `gorm:"column:description;not null" json:"description"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Position     int             `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
