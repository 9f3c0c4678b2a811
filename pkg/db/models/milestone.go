package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Milestone marks a dated checkpoint within a project.
type Milestone struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID             `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Name        string                `gorm:"column:name;not null" json:"name"`
	Description *string               `gorm:"column:description" json:"description"`
	TargetDate  time.Time             `gorm:"column:target_date;type:date;not null" json:"target_date"`
	Status      enums.MilestoneStatus `gorm:"column:status;type:milestone_status;not null;default:'upcoming'" json:"status"`
	ReachedAt   *time.Time            `gorm:"column:reached_at" json:"reached_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
