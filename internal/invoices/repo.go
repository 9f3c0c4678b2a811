package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
)

// Repository exposes invoice persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an invoice repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts an invoice with its snapshot line items inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, invoice *models.Invoice) (*models.Invoice, error) {
	if err := tx.Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// UpdateTx persists the invoice header inside the transaction. Line items are
// immutable snapshots and are never rewritten.
func (r *Repository) UpdateTx(tx *gorm.DB, invoice *models.Invoice) error {
	return tx.Omit("Items").Save(invoice).Error
}

// NextNumberTx increments and returns the per-month invoice sequence inside
// the transaction. The upsert keeps concurrent generators from reusing a value.
func (r *Repository) NextNumberTx(tx *gorm.DB, period string) (int64, error) {
	var value int64
	err := tx.Raw(
		`INSERT INTO document_counters (kind, period, value) VALUES ('invoice', ?, 1)
		 ON CONFLICT (kind, period) DO UPDATE SET value = document_counters.value + 1
		 RETURNING value`,
		period,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// FindByID loads an invoice with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var row models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns invoices using cursor pagination with optional filters.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})

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

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueBefore returns sent or partially paid invoices whose due date falls
// on or before the cutoff, for the overdue sweep.
func (r *Repository) ListDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{"sent", "partially_paid"}).
		Where("due_date <= ?", cutoff).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
