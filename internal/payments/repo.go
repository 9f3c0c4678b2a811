package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes payment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a payment with its snapshot line items inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, payment *models.Payment) (*models.Payment, error) {
	if err := tx.Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdateTx persists the payment header inside the transaction.
func (r *Repository) UpdateTx(tx *gorm.DB, payment *models.Payment) error {
	return tx.Omit("Items").Save(payment).Error
}

// NextNumberTx increments and returns the per-month payment sequence inside
// the transaction.
func (r *Repository) NextNumberTx(tx *gorm.DB, period string) (int64, error) {
	var value int64
	err := tx.Raw(
		`INSERT INTO document_counters (kind, period, value) VALUES ('payment', ?, 1)
		 ON CONFLICT (kind, period) DO UPDATE SET value = document_counters.value + 1
		 RETURNING value`,
		period,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// FindByID loads a payment with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var row models.Payment
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns payments using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})

	if opts.stakeholderID != nil {
		query = query.Where("stakeholder_id = ?", *opts.stakeholderID)
	}
	if opts.agreementID != nil {
		query = query.Where("agreement_id = ?", *opts.agreementID)
	}
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Payment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
