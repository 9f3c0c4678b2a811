package models

import (
	"time"

	"github.com/google/uuid"
)

// Stakeholder is a billing counterparty, invoiced or invoicing us.
type Stakeholder struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	Email           string    `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	BillingAddress  *string   `gorm:"column:billing_address" json:"billing_address"`
	DefaultCurrency string    `gorm:"column:default_currency;not null;default:'USD'" json:"default_currency"`
	Notes           *string   `gorm:"column:notes" json:"notes"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
