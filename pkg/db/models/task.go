package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Task is a unit of work inside a project.
type Task struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID          `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Title       string             `gorm:"column:title;not null" json:"title"`
	Description *string            `gorm:"column:description" json:"description"`
	Status      enums.TaskStatus   `gorm:"column:status;type:task_status;not null;default:'todo'" json:"status"`
	Priority    enums.TaskPriority `gorm:"column:priority;type:task_priority;not null;default:'medium'" json:"priority"`
	AssigneeID  *uuid.UUID         `gorm:"column:assignee_id;type:uuid" json:"assignee_id"`
	DueDate     *time.Time         `gorm:"column:due_date;type:date" json:"due_date"`
	CompletedAt *time.Time         `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
