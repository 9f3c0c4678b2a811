package agreements

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
	Status        string
	Direction     string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID             uuid.UUID              `json:"id"`
	StakeholderID  uuid.UUID              `json:"stakeholder_id"`
	Name           string                 `json:"name"`
	Direction      enums.ServiceDirection `json:"direction"`
	Status         enums.AgreementStatus  `json:"status"`
	CycleType      enums.CycleType        `json:"cycle_type"`
	DayOfMonth     *int                   `json:"day_of_month"`
	DayOfWeek      *int                   `json:"day_of_week"`
	MonthOfYear    *int                   `json:"month_of_year"`
	IntervalDays   *int                   `json:"interval_days"`
	TaxRatePercent decimal.Decimal        `json:"tax_rate_percent"`
	Currency       string                 `json:"currency"`
	StartDate      time.Time              `json:"start_date"`
	EndDate        *time.Time             `json:"end_date"`
	LastBilledAt   *time.Time             `json:"last_billed_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type listQuery struct {
	stakeholderID *uuid.UUID
	status        *enums.AgreementStatus
	direction     *enums.ServiceDirection
	limit         int
	cursor        *pkgpagination.Cursor
}

func toListItem(m models.ServiceAgreement) ListItem {
	return ListItem{
		ID:             m.ID,
		StakeholderID:  m.StakeholderID,
		Name:           m.Name,
		Direction:      m.Direction,
		Status:         m.Status,
		CycleType:      m.CycleType,
		DayOfMonth:     m.DayOfMonth,
		DayOfWeek:      m.DayOfWeek,
		MonthOfYear:    m.MonthOfYear,
		IntervalDays:   m.IntervalDays,
		TaxRatePercent: m.TaxRatePercent,
		Currency:       m.Currency,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		LastBilledAt:   m.LastBilledAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
