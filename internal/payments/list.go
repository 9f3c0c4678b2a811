package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type ListParams struct {
	StakeholderID *uuid.UUID
	AgreementID   *uuid.UUID
	Status        string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID             uuid.UUID           `json:"id"`
	PaymentNumber  string              `json:"payment_number"`
	AgreementID    uuid.UUID           `json:"agreement_id"`
	StakeholderID  uuid.UUID           `json:"stakeholder_id"`
	Status         enums.PaymentStatus `json:"status"`
	Currency       string              `json:"currency"`
	PeriodStart    time.Time           `json:"period_start"`
	PeriodEnd      time.Time           `json:"period_end"`
	IsProRata      bool                `json:"is_pro_rata"`
	SubtotalAmount decimal.Decimal     `json:"subtotal_amount"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	DueDate        *time.Time          `json:"due_date"`
	PaidAt         *time.Time          `json:"paid_at"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type listQuery struct {
	stakeholderID *uuid.UUID
	agreementID   *uuid.UUID
	status        *enums.PaymentStatus
	limit         int
	cursor        *pkgpagination.Cursor
}

func toListItem(m models.Payment) ListItem {
	return ListItem{
		ID:             m.ID,
		PaymentNumber:  m.PaymentNumber,
		AgreementID:    m.AgreementID,
		StakeholderID:  m.StakeholderID,
		Status:         m.Status,
		Currency:       m.Currency,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		IsProRata:      m.IsProRata,
		SubtotalAmount: m.SubtotalAmount,
		TaxAmount:      m.TaxAmount,
		TotalAmount:    m.TotalAmount,
		DueDate:        m.DueDate,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
