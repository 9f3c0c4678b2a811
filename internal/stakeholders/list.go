package stakeholders

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type ListParams struct {
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	BillingAddress  *string   `json:"billing_address"`
	DefaultCurrency string    `json:"default_currency"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type listQuery struct {
	limit  int
	cursor *pkgpagination.Cursor
}

func toListItem(m models.Stakeholder) ListItem {
	return ListItem{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		BillingAddress:  m.BillingAddress,
		DefaultCurrency: m.DefaultCurrency,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
