package agreements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/internal/billing"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type agreementsRepository interface {
	CreateTx(tx *gorm.DB, agreement *models.ServiceAgreement) (*models.ServiceAgreement, error)
	UpdateTx(tx *gorm.DB, agreement *models.ServiceAgreement) error
	ReplaceItemsTx(tx *gorm.DB, agreementID uuid.UUID, items []models.AgreementLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error)
	List(ctx context.Context, opts listQuery) ([]models.ServiceAgreement, error)
}

type stakeholdersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes service agreement management semantics.
type Service interface {
	CreateAgreement(ctx context.Context, input CreateAgreementInput) (*models.ServiceAgreement, error)
	UpdateAgreement(ctx context.Context, id uuid.UUID, input UpdateAgreementInput) (*models.ServiceAgreement, error)
	GetAgreement(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error)
	ListAgreements(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo            agreementsRepository
	stakeholderRepo stakeholdersRepository
	tx              txRunner
}

// CycleInput carries the raw cycle configuration for validation.
type CycleInput struct {
	Type         string
	DayOfMonth   *int
	DayOfWeek    *int
	MonthOfYear  *int
	IntervalDays *int
}

// LineItemInput is one recurring service row.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateAgreementInput holds the fields required to open an agreement.
type CreateAgreementInput struct {
	StakeholderID  uuid.UUID
	Name           string
	Direction      string
	Cycle          CycleInput
	TaxRatePercent decimal.Decimal
	Currency       string
	StartDate      time.Time
	EndDate        *time.Time
	Items          []LineItemInput
}

// UpdateAgreementInput carries optional field updates.
type UpdateAgreementInput struct {
	Name           *string
	Status         *string
	Cycle          *CycleInput
	TaxRatePercent *decimal.Decimal
	EndDate        *time.Time
	Items          []LineItemInput
}

// NewService builds an agreement service backed by the provided dependencies.
func NewService(repo agreementsRepository, stakeholderRepo stakeholdersRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agreement repository required")
	}
	if stakeholderRepo == nil {
		return nil, fmt.Errorf("stakeholder repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, stakeholderRepo: stakeholderRepo, tx: tx}, nil
}

func (s *service) CreateAgreement(ctx context.Context, input CreateAgreementInput) (*models.ServiceAgreement, error) {
	if input.StakeholderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder_id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	direction, err := enums.ParseServiceDirection(input.Direction)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction")
	}
	cycleType, err := enums.ParseCycleType(input.Cycle.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cycle type")
	}
	cycle := toBillingCycle(cycleType, input.Cycle)
	if err := billing.ValidateCycle(cycle); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cycle configuration")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date is required")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}
	items, err := buildLineItems(input.Items, input.TaxRatePercent)
	if err != nil {
		return nil, err
	}

	stakeholder, err := s.stakeholderRepo.FindByID(ctx, input.StakeholderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stakeholder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup stakeholder")
	}

	row := &models.ServiceAgreement{
		StakeholderID:  stakeholder.ID,
		Name:           name,
		Direction:      direction,
		Status:         enums.AgreementStatusActive,
		CycleType:      cycleType,
		DayOfMonth:     input.Cycle.DayOfMonth,
		DayOfWeek:      input.Cycle.DayOfWeek,
		MonthOfYear:    input.Cycle.MonthOfYear,
		IntervalDays:   input.Cycle.IntervalDays,
		TaxRatePercent: input.TaxRatePercent,
		Currency:       currency,
		StartDate:      billing.DateOf(input.StartDate),
		Items:          items,
	}
	if input.EndDate != nil {
		endDate := billing.DateOf(*input.EndDate)
		row.EndDate = &endDate
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.CreateTx(tx, row)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agreement")
	}
	return row, nil
}

func (s *service) UpdateAgreement(ctx context.Context, id uuid.UUID, input UpdateAgreementInput) (*models.ServiceAgreement, error) {
	row, err := s.findAgreement(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Status == enums.AgreementStatusEnded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ended agreements cannot be edited")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
	}
	if input.Status != nil {
		status, err := enums.ParseAgreementStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		row.Status = status
	}
	if input.Cycle != nil {
		cycleType, err := enums.ParseCycleType(input.Cycle.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cycle type")
		}
		cycle := toBillingCycle(cycleType, *input.Cycle)
		if err := billing.ValidateCycle(cycle); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cycle configuration")
		}
		row.CycleType = cycleType
		row.DayOfMonth = input.Cycle.DayOfMonth
		row.DayOfWeek = input.Cycle.DayOfWeek
		row.MonthOfYear = input.Cycle.MonthOfYear
		row.IntervalDays = input.Cycle.IntervalDays
	}
	if input.TaxRatePercent != nil {
		row.TaxRatePercent = *input.TaxRatePercent
	}
	if input.EndDate != nil {
		endDate := billing.DateOf(*input.EndDate)
		if endDate.Before(row.StartDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date")
		}
		row.EndDate = &endDate
	}

	replaceItems := input.Items != nil
	items := row.Items
	if replaceItems {
		built, err := buildLineItems(input.Items, row.TaxRatePercent)
		if err != nil {
			return nil, err
		}
		items = built
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		if replaceItems {
			return s.repo.ReplaceItemsTx(tx, row.ID, items)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agreement")
	}
	row.Items = items
	return row, nil
}

func (s *service) GetAgreement(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error) {
	return s.findAgreement(ctx, id)
}

func (s *service) ListAgreements(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		stakeholderID: params.StakeholderID,
		limit:         pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseAgreementStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.status = &status
	}
	if params.Direction != "" {
		direction, err := enums.ParseServiceDirection(params.Direction)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction filter")
		}
		query.direction = &direction
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agreements")
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

func (s *service) findAgreement(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agreement id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agreement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup agreement")
	}
	return row, nil
}

func buildLineItems(inputs []LineItemInput, taxRate decimal.Decimal) ([]models.AgreementLineItem, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	calcItems := make([]billing.LineItem, len(inputs))
	for i, in := range inputs {
		calcItems[i] = billing.LineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		}
	}
	if _, err := billing.ComputeTotals(calcItems, taxRate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line items")
	}

	rows := make([]models.AgreementLineItem, len(calcItems))
	for i, item := range calcItems {
		rows[i] = models.AgreementLineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Position:    i,
		}
	}
	return rows, nil
}

func toBillingCycle(cycleType enums.CycleType, input CycleInput) billing.Cycle {
	cycle := billing.Cycle{Type: cycleType}
	if input.DayOfMonth != nil {
		cycle.DayOfMonth = *input.DayOfMonth
	}
	if input.DayOfWeek != nil {
		cycle.DayOfWeek = *input.DayOfWeek
	}
	if input.MonthOfYear != nil {
		cycle.MonthOfYear = *input.MonthOfYear
	}
	if input.IntervalDays != nil {
		cycle.IntervalDays = *input.IntervalDays
	}
	return cycle
}

// BillingCycle maps a stored agreement's cycle columns to the calculator type.
func BillingCycle(m *models.ServiceAgreement) billing.Cycle {
	cycle := billing.Cycle{Type: m.CycleType}
	if m.DayOfMonth != nil {
		cycle.DayOfMonth = *m.DayOfMonth
	}
	if m.DayOfWeek != nil {
		cycle.DayOfWeek = *m.DayOfWeek
	}
	if m.MonthOfYear != nil {
		cycle.MonthOfYear = *m.MonthOfYear
	}
	if m.IntervalDays != nil {
		cycle.IntervalDays = *m.IntervalDays
	}
	return cycle
}

// BillingDefinition maps a stored agreement to the calculator's input type.
func BillingDefinition(m *models.ServiceAgreement) billing.Definition {
	items := make([]billing.LineItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = billing.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	def := billing.Definition{
		Cycle:          BillingCycle(m),
		Items:          items,
		TaxRatePercent: m.TaxRatePercent,
		Currency:       m.Currency,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		LastBilledAt:   m.LastBilledAt,
	}
	return def
}
