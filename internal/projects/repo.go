package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes project persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a project repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new project row.
func (r *Repository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Update persists all mutable project fields.
func (r *Repository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// FindByID loads a project by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var row models.Project
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns projects using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Project, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{})

	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.ownerID != nil {
		query = query.Where("owner_id = ?", *opts.ownerID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Project
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
