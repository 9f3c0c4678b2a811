package stakeholders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes stakeholder persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stakeholder repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new stakeholder row.
func (r *Repository) Create(ctx context.Context, stakeholder *models.Stakeholder) (*models.Stakeholder, error) {
	if err := r.db.WithContext(ctx).Create(stakeholder).Error; err != nil {
		return nil, err
	}
	return stakeholder, nil
}

// Update persists the mutable stakeholder fields.
func (r *Repository) Update(ctx context.Context, stakeholder *models.Stakeholder) error {
	return r.db.WithContext(ctx).Save(stakeholder).Error
}

// FindByID loads a stakeholder by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error) {
	var row models.Stakeholder
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns stakeholders using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Stakeholder, error) {
	query := r.db.WithContext(ctx).Model(&models.Stakeholder{})

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Stakeholder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
