package settlements

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
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/outbox/payloads"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type settlementsRepository interface {
	CreateTx(tx *gorm.DB, settlement *models.Settlement) (*models.Settlement, error)
	UpdateTx(tx *gorm.DB, settlement *models.Settlement) error
	ReplaceItemsTx(tx *gorm.DB, settlementID uuid.UUID, items []models.SettlementLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	List(ctx context.Context, opts listQuery) ([]models.Settlement, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the expense claim workflow.
type Service interface {
	CreateSettlement(ctx context.Context, claimantID uuid.UUID, input CreateSettlementInput) (*models.Settlement, error)
	UpdateSettlement(ctx context.Context, id uuid.UUID, input UpdateSettlementInput) (*models.Settlement, error)
	SubmitSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	ApproveSettlement(ctx context.Context, approverID, id uuid.UUID) (*models.Settlement, error)
	RejectSettlement(ctx context.Context, id uuid.UUID, reason string) (*models.Settlement, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	GetSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	ListSettlements(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo   settlementsRepository
	tx     txRunner
	events outboxEmitter
	now    func() time.Time
}

// LineItemInput is one claimed expense row.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateSettlementInput holds the fields required to open a claim.
type CreateSettlementInput struct {
	Title          string
	Currency       string
	TaxRatePercent decimal.Decimal
	Items          []LineItemInput
}

// UpdateSettlementInput carries draft-only updates.
type UpdateSettlementInput struct {
	Title          *string
	Currency       *string
	TaxRatePercent *decimal.Decimal
	Items          []LineItemInput
}

// NewService builds a settlement service backed by the provided dependencies.
func NewService(repo settlementsRepository, tx txRunner, events outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, events: events, now: time.Now}, nil
}

func (s *service) CreateSettlement(ctx context.Context, claimantID uuid.UUID, input CreateSettlementInput) (*models.Settlement, error) {
	if claimantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claimant identity missing")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}

	items, totals, err := buildLineItems(input.Items, input.TaxRatePercent)
	if err != nil {
		return nil, err
	}

	row := &models.Settlement{
		ClaimantID:     claimantID,
		Title:          title,
		Status:         enums.SettlementStatusDraft,
		Currency:       currency,
		TaxRatePercent: input.TaxRatePercent,
		SubtotalAmount: totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		TotalAmount:    totals.Total,
		Items:          items,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.CreateTx(tx, row)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
	}
	return row, nil
}

func (s *service) UpdateSettlement(ctx context.Context, id uuid.UUID, input UpdateSettlementInput) (*models.Settlement, error) {
	row, err := s.findSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Status != enums.SettlementStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft settlements can be edited")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		row.Title = title
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if len(currency) != 3 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
		}
		row.Currency = currency
	}
	if input.TaxRatePercent != nil {
		row.TaxRatePercent = *input.TaxRatePercent
	}

	replaceItems := input.Items != nil
	items := row.Items
	if replaceItems {
		built, totals, err := buildLineItems(input.Items, row.TaxRatePercent)
		if err != nil {
			return nil, err
		}
		items = built
		row.SubtotalAmount = totals.Subtotal
		row.TaxAmount = totals.TaxAmount
		row.TotalAmount = totals.Total
	} else if input.TaxRatePercent != nil {
		// Tax rate changed without new items, recompute from the stored rows.
		_, totals, err := buildLineItems(toInputs(row.Items), row.TaxRatePercent)
		if err != nil {
			return nil, err
		}
		row.SubtotalAmount = totals.Subtotal
		row.TaxAmount = totals.TaxAmount
		row.TotalAmount = totals.Total
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settlement")
	}
	row.Items = items
	return row, nil
}

func (s *service) SubmitSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	row, err := s.findSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.SettlementStatusSubmitted) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot submit a %s settlement", row.Status))
	}
	if len(row.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement has no line items")
	}

	submittedAt := s.now()
	row.Status = enums.SettlementStatusSubmitted
	row.SubmittedAt = &submittedAt
	row.RejectedAt = nil
	row.RejectionReason = nil
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateTx(tx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit settlement")
	}
	return row, nil
}

func (s *service) ApproveSettlement(ctx context.Context, approverID, id uuid.UUID) (*models.Settlement, error) {
	if approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver identity missing")
	}
	row, err := s.findSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.SettlementStatusApproved) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot approve a %s settlement", row.Status))
	}
	if approverID == row.ClaimantID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "claimants cannot approve their own settlements")
	}

	approvedAt := s.now()
	row.Status = enums.SettlementStatusApproved
	row.ApprovedAt = &approvedAt
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementApproved,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: approverID},
			Version:       1,
			OccurredAt:    approvedAt,
			Data: payloads.SettlementApprovedEvent{
				SettlementID: row.ID,
				ClaimantID:   row.ClaimantID,
				ApproverID:   approverID,
				TotalAmount:  row.TotalAmount.StringFixed(2),
				Currency:     row.Currency,
				ApprovedAt:   approvedAt,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve settlement")
	}
	return row, nil
}

func (s *service) RejectSettlement(ctx context.Context, id uuid.UUID, reason string) (*models.Settlement, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	row, err := s.findSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.SettlementStatusRejected) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot reject a %s settlement", row.Status))
	}

	rejectedAt := s.now()
	row.Status = enums.SettlementStatusRejected
	row.RejectedAt = &rejectedAt
	row.RejectionReason = &reason
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateTx(tx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject settlement")
	}
	return row, nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	row, err := s.findSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.SettlementStatusPaid) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot pay a %s settlement", row.Status))
	}

	paidAt := s.now()
	row.Status = enums.SettlementStatusPaid
	row.PaidAt = &paidAt
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementPaid,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   row.ID,
			Version:       1,
			OccurredAt:    paidAt,
			Data: payloads.SettlementPaidEvent{
				SettlementID: row.ID,
				ClaimantID:   row.ClaimantID,
				TotalAmount:  row.TotalAmount.StringFixed(2),
				Currency:     row.Currency,
				PaidAt:       paidAt,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark settlement paid")
	}
	return row, nil
}

func (s *service) GetSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return s.findSettlement(ctx, id)
}

func (s *service) ListSettlements(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		claimantID: params.ClaimantID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseSettlementStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.status = &status
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
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

func (s *service) findSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup settlement")
	}
	return row, nil
}

func buildLineItems(inputs []LineItemInput, taxRate decimal.Decimal) ([]models.SettlementLineItem, billing.Totals, error) {
	if len(inputs) == 0 {
		return nil, billing.Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	calcItems := make([]billing.LineItem, len(inputs))
	for i, in := range inputs {
		calcItems[i] = billing.LineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		}
	}
	totals, err := billing.ComputeTotals(calcItems, taxRate)
	if err != nil {
		return nil, billing.Totals{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line items")
	}

	rows := make([]models.SettlementLineItem, len(calcItems))
	for i, item := range calcItems {
		rows[i] = models.SettlementLineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount().Round(2),
			Position:    i,
		}
	}
	return rows, totals, nil
}

func toInputs(items []models.SettlementLineItem) []LineItemInput {
	out := make([]LineItemInput, len(items))
	for i, item := range items {
		out[i] = LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return out
}
