package milestones

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes milestone persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a milestone repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new milestone row.
func (r *Repository) Create(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error) {
	if err := r.db.WithContext(ctx).Create(milestone).Error; err != nil {
		return nil, err
	}
	return milestone, nil
}

// Update persists all mutable milestone fields.
func (r *Repository) Update(ctx context.Context, milestone *models.Milestone) error {
	return r.db.WithContext(ctx).Save(milestone).Error
}

// FindByID loads a milestone by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var row models.Milestone
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByProject returns all milestones for a project ordered by target date.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	var rows []models.Milestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("target_date ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
