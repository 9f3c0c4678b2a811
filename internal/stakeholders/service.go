package stakeholders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/calderhq/opsdesk-backend/pkg/db"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type stakeholdersRepository interface {
	Create(ctx context.Context, stakeholder *models.Stakeholder) (*models.Stakeholder, error)
	Update(ctx context.Context, stakeholder *models.Stakeholder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error)
	List(ctx context.Context, opts listQuery) ([]models.Stakeholder, error)
}

// Service exposes stakeholder management semantics.
type Service interface {
	CreateStakeholder(ctx context.Context, input CreateStakeholderInput) (*models.Stakeholder, error)
	UpdateStakeholder(ctx context.Context, id uuid.UUID, input UpdateStakeholderInput) (*models.Stakeholder, error)
	GetStakeholder(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error)
	ListStakeholders(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo stakeholdersRepository
}

// CreateStakeholderInput holds the fields required to register a counterparty.
type CreateStakeholderInput struct {
	Name            string
	Email           string
	BillingAddress  *string
	DefaultCurrency string
	Notes           *string
}

// UpdateStakeholderInput carries optional field updates.
type UpdateStakeholderInput struct {
	Name            *string
	Email           *string
	BillingAddress  *string
	DefaultCurrency *string
	Notes           *string
}

// NewService builds a stakeholder service backed by the provided repository.
func NewService(repo stakeholdersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stakeholder repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateStakeholder(ctx context.Context, input CreateStakeholderInput) (*models.Stakeholder, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_currency must be a 3-letter code")
	}

	row := &models.Stakeholder{
		Name:            name,
		Email:           email,
		BillingAddress:  input.BillingAddress,
		DefaultCurrency: currency,
		Notes:           input.Notes,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "stakeholders_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stakeholder")
	}
	return created, nil
}

func (s *service) UpdateStakeholder(ctx context.Context, id uuid.UUID, input UpdateStakeholderInput) (*models.Stakeholder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stakeholder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup stakeholder")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		row.Email = email
	}
	if input.DefaultCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.DefaultCurrency))
		if len(currency) != 3 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_currency must be a 3-letter code")
		}
		row.DefaultCurrency = currency
	}
	if input.BillingAddress != nil {
		row.BillingAddress = input.BillingAddress
	}
	if input.Notes != nil {
		row.Notes = input.Notes
	}

	if err := s.repo.Update(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "stakeholders_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stakeholder")
	}
	return row, nil
}

func (s *service) GetStakeholder(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stakeholder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup stakeholder")
	}
	return row, nil
}

func (s *service) ListStakeholders(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{limit: pkgpagination.LimitWithBuffer(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stakeholders")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}
