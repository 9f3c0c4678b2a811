package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Project is the top-level unit of work tracking.
type Project struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string              `gorm:"column:name;not null" json:"name"`
	Description *string             `gorm:"column:description" json:"description"`
	Status      enums.ProjectStatus `gorm:"column:status;type:project_status;not null;default:'planning'" json:"status"`
	OwnerID     uuid.UUID           `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	Tags        pq.StringArray      `gorm:"column:tags;type:text[];default:ARRAY[]::text[]" json:"tags"`
	StartDate   *time.Time          `gorm:"column:start_date;type:date" json:"start_date"`
	EndDate     *time.Time          `gorm:"column:end_date;type:date" json:"end_date"`
	ArchivedAt  *time.Time          `gorm:"column:archived_at" json:"archived_at"`
	Tasks       []Task              `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	Milestones  []Milestone         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
