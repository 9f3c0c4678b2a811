package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// ServiceAgreement binds a stakeholder to a billed or billing service and its
// billing cycle configuration. Outgoing agreements produce invoices, incoming
// agreements produce payments.
type ServiceAgreement struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StakeholderID  uuid.UUID              `gorm:"column:stakeholder_id;type:uuid;not null;index" json:"stakeholder_id"`
	Name           string                 `gorm:"column:name;not null" json:"name"`
	Direction      enums.ServiceDirection `gorm:"column:direction;type:service_direction;not null" json:"direction"`
	Status         enums.AgreementStatus  `gorm:"column:status;type:agreement_status;not null;default:'active'" json:"status"`
	CycleType      enums.CycleType        `gorm:"column:cycle_type;type:cycle_type;not null" json:"cycle_type"`
	DayOfMonth     *int                   `gorm:"column:day_of_month" json:"day_of_month"`
	DayOfWeek      *int                   `gorm:"column:day_of_week" json:"day_of_week"`
	MonthOfYear    *int                   `gorm:"column:month_of_year" json:"month_of_year"`
	IntervalDays   *int                   `gorm:"column:interval_days" json:"interval_days"`
	TaxRatePercent decimal.Decimal        `gorm:"column:tax_rate_percent;type:numeric(5,2);not null;default:0" json:"tax_rate_percent"`
	Currency       string                 `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	StartDate      time.Time              `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate        *time.Time             `gorm:"column:end_date;type:date" json:"end_date"`
	LastBilledAt   *time.Time             `gorm:"column:last_billed_at;type:date" json:"last_billed_at"`
	Items          []AgreementLineItem    `gorm:"foreignKey:AgreementID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// AgreementLineItem is a recurring service line billed each cycle.
type AgreementLineItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgreementID uuid.UUID       `gorm:"column:agreement_id;type:uuid;not null;index" json:"agreement_id"`
	Description string          `gorm:"column:description;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Position    int             `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
