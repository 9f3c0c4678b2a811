package tasks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes task persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a task repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new task row.
func (r *Repository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Update persists all mutable task fields.
func (r *Repository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// FindByID loads a task by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var row models.Task
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes a task row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id).Error
}

// List returns tasks using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if opts.projectID != nil {
		query = query.Where("project_id = ?", *opts.projectID)
	}
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.assigneeID != nil {
		query = query.Where("assignee_id = ?", *opts.assigneeID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Task
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
