package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Invoice is a generated billing document for an outgoing agreement. Line
// items are snapshots; editing the agreement never rewrites an invoice.
type Invoice struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber  string              `gorm:"column:invoice_number;not null;uniqueIndex" json:"invoice_number"`
	AgreementID    uuid.UUID           `gorm:"column:agreement_id;type:uuid;not null;index" json:"agreement_id"`
	StakeholderID  uuid.UUID           `gorm:"column:stakeholder_id;type:uuid;not null;index" json:"stakeholder_id"`
	Status         enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'draft'" json:"status"`
	Currency       string              `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	PeriodStart    time.Time           `gorm:"column:period_start;type:date;not null" json:"period_start"`
	PeriodEnd      time.Time           `gorm:"column:period_end;type:date;not null" json:"period_end"`
	IsProRata      bool                `gorm:"column:is_pro_rata;not null;default:false" json:"is_pro_rata"`
	SubtotalAmount decimal.Decimal     `gorm:"column:subtotal_amount;type:numeric(12,2);not null" json:"subtotal_amount"`
	TaxRatePercent decimal.Decimal     `gorm:"column:tax_rate_percent;type:numeric(5,2);not null;default:0" json:"tax_rate_percent"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	IssuedAt       *time.Time          `gorm:"column:issued_at" json:"issued_at"`
	DueDate        *time.Time          `gorm:"column:due_date;type:date" json:"due_date"`
	PaidAt         *time.Time          `gorm:"column:paid_at" json:"paid_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at"`
	Items          []InvoiceLineItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// InvoiceLineItem is the snapshot of one billed line, including pro-rata
// day counts when the period was clamped short.
type InvoiceLineItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID        uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index" json:"invoice_id"`
	Description      string          `gorm:"column:description;not null" json:"description"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	ProRataDays      *int            `gorm:"column:pro_rata_days" json:"pro_rata_days"`
	ProRataTotalDays *int            `gorm:"column:pro_rata_total_days" json:"pro_rata_total_days"`
	Position         int             `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
