package settlements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes settlement persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a settlement repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a settlement with its line items inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, settlement *models.Settlement) (*models.Settlement, error) {
	if err := tx.Create(settlement).Error; err != nil {
		return nil, err
	}
	return settlement, nil
}

// UpdateTx persists the settlement header inside the transaction.
func (r *Repository) UpdateTx(tx *gorm.DB, settlement *models.Settlement) error {
	return tx.Omit("Items").Save(settlement).Error
}

// ReplaceItemsTx swaps the settlement's line items inside the transaction.
func (r *Repository) ReplaceItemsTx(tx *gorm.DB, settlementID uuid.UUID, items []models.SettlementLineItem) error {
	if err := tx.Where("settlement_id = ?", settlementID).Delete(&models.SettlementLineItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SettlementID = settlementID
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// FindByID loads a settlement with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var row models.Settlement
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns settlements using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Settlement, error) {
	query := r.db.WithContext(ctx).Model(&models.Settlement{})

	if opts.claimantID != nil {
		query = query.Where("claimant_id = ?", *opts.claimantID)
	}
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Settlement
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
