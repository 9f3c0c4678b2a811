package agreements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

// Repository exposes service agreement persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an agreement repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts an agreement with its line items inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, agreement *models.ServiceAgreement) (*models.ServiceAgreement, error) {
	if err := tx.Create(agreement).Error; err != nil {
		return nil, err
	}
	return agreement, nil
}

// UpdateTx persists the agreement header inside the transaction.
func (r *Repository) UpdateTx(tx *gorm.DB, agreement *models.ServiceAgreement) error {
	return tx.Omit("Items").Save(agreement).Error
}

// ReplaceItemsTx swaps the agreement's line items inside the transaction.
func (r *Repository) ReplaceItemsTx(tx *gorm.DB, agreementID uuid.UUID, items []models.AgreementLineItem) error {
	if err := tx.Where("agreement_id = ?", agreementID).Delete(&models.AgreementLineItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].AgreementID = agreementID
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// AdvanceLastBilledTx moves the agreement's last billed date forward inside the
// transaction that persisted the generated document.
func (r *Repository) AdvanceLastBilledTx(tx *gorm.DB, agreementID uuid.UUID, billedThrough time.Time) error {
	return tx.Model(&models.ServiceAgreement{}).
		Where("id = ?", agreementID).
		Update("last_billed_at", billedThrough).Error
}

// FindByID loads an agreement with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error) {
	var row models.ServiceAgreement
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListActiveByDirection loads all active agreements with items for the given
// direction. Used by the recurring billing job.
func (r *Repository) ListActiveByDirection(ctx context.Context, direction enums.ServiceDirection) ([]models.ServiceAgreement, error) {
	var rows []models.ServiceAgreement
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("status = ? AND direction = ?", enums.AgreementStatusActive, direction).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// List returns agreements using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.ServiceAgreement, error) {
	query := r.db.WithContext(ctx).Model(&models.ServiceAgreement{})

	if opts.stakeholderID != nil {
		query = query.Where("stakeholder_id = ?", *opts.stakeholderID)
	}
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.direction != nil {
		query = query.Where("direction = ?", *opts.direction)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.ServiceAgreement
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
