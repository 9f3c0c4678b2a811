package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type ListParams struct {
	Status  string
	OwnerID *uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Status      enums.ProjectStatus `json:"status"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Tags        []string            `json:"tags"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
	ArchivedAt  *time.Time          `json:"archived_at"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type listQuery struct {
	status  *enums.ProjectStatus
	ownerID *uuid.UUID
	limit   int
	cursor  *pkgpagination.Cursor
}

func toListItem(m models.Project) ListItem {
	return ListItem{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		OwnerID:     m.OwnerID,
		Tags:        m.Tags,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		ArchivedAt:  m.ArchivedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
