package settlements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type ListParams struct {
	ClaimantID *uuid.UUID
	Status     string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID             uuid.UUID              `json:"id"`
	ClaimantID     uuid.UUID              `json:"claimant_id"`
	Title          string                 `json:"title"`
	Status         enums.SettlementStatus `json:"status"`
	Currency       string                 `json:"currency"`
	TaxRatePercent decimal.Decimal        `json:"tax_rate_percent"`
	SubtotalAmount decimal.Decimal        `json:"subtotal_amount"`
	TaxAmount      decimal.Decimal        `json:"tax_amount"`
	TotalAmount    decimal.Decimal        `json:"total_amount"`
	SubmittedAt    *time.Time             `json:"submitted_at"`
	ApprovedAt     *time.Time             `json:"approved_at"`
	PaidAt         *time.Time             `json:"paid_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type listQuery struct {
	claimantID *uuid.UUID
	status     *enums.SettlementStatus
	limit      int
	cursor     *pkgpagination.Cursor
}

func toListItem(m models.Settlement) ListItem {
	return ListItem{
		ID:             m.ID,
		ClaimantID:     m.ClaimantID,
		Title:          m.Title,
		Status:         m.Status,
		Currency:       m.Currency,
		TaxRatePercent: m.TaxRatePercent,
		SubtotalAmount: m.SubtotalAmount,
		TaxAmount:      m.TaxAmount,
		TotalAmount:    m.TotalAmount,
		SubmittedAt:    m.SubmittedAt,
		ApprovedAt:     m.ApprovedAt,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
