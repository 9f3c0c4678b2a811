package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type ListParams struct {
	ProjectID  *uuid.UUID
	Status     string
	AssigneeID *uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	Status      enums.TaskStatus   `json:"status"`
	Priority    enums.TaskPriority `json:"priority"`
	AssigneeID  *uuid.UUID         `json:"assignee_id"`
	DueDate     *time.Time         `json:"due_date"`
	CompletedAt *time.Time         `json:"completed_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type listQuery struct {
	projectID  *uuid.UUID
	status     *enums.TaskStatus
	assigneeID *uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

func toListItem(m models.Task) ListItem {
	return ListItem{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Title:       m.Title,
		Description: m.Description,
		Status:      m.Status,
		Priority:    m.Priority,
		AssigneeID:  m.AssigneeID,
		DueDate:     m.DueDate,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
