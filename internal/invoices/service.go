package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/internal/agreements"
	"github.com/calderhq/opsdesk-backend/internal/billing"
	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/outbox/payloads"
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type invoicesRepository interface {
	CreateTx(tx *gorm.DB, invoice *models.Invoice) (*models.Invoice, error)
	UpdateTx(tx *gorm.DB, invoice *models.Invoice) error
	NextNumberTx(tx *gorm.DB, period string) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, opts listQuery) ([]models.Invoice, error)
}

type agreementsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error)
	AdvanceLastBilledTx(tx *gorm.DB, agreementID uuid.UUID, billedThrough time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes invoice generation and lifecycle semantics.
type Service interface {
	PreviewInvoice(ctx context.Context, agreementID uuid.UUID, asOf time.Time) (*Preview, error)
	GenerateInvoice(ctx context.Context, input GenerateInput) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo          invoicesRepository
	agreementRepo agreementsRepository
	tx            txRunner
	events        outboxEmitter
	cfg           config.BillingConfig
	now           func() time.Time
}

// GenerateInput identifies the agreement to bill and who asked for it.
type GenerateInput struct {
	AgreementID uuid.UUID
	AsOf        time.Time
	ActorID     uuid.UUID
}

// PreviewLine is one line of a previewed invoice.
type PreviewLine struct {
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	ProRataDays      *int            `json:"pro_rata_days"`
	ProRataTotalDays *int            `json:"pro_rata_total_days"`
}

// Preview is what generating an invoice right now would produce. Nothing is
// persisted and no invoice number is assigned.
type Preview struct {
	AgreementID    uuid.UUID       `json:"agreement_id"`
	StakeholderID  uuid.UUID       `json:"stakeholder_id"`
	Currency       string          `json:"currency"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	IsProRata      bool            `json:"is_pro_rata"`
	Lines          []PreviewLine   `json:"lines"`
	SubtotalAmount decimal.Decimal `json:"subtotal_amount"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// NewService builds an invoice service backed by the provided dependencies.
func NewService(repo invoicesRepository, agreementRepo agreementsRepository, tx txRunner, events outboxEmitter, cfg config.BillingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if agreementRepo == nil {
		return nil, fmt.Errorf("agreement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:          repo,
		agreementRepo: agreementRepo,
		tx:            tx,
		events:        events,
		cfg:           cfg,
		now:           time.Now,
	}, nil
}

func (s *service) PreviewInvoice(ctx context.Context, agreementID uuid.UUID, asOf time.Time) (*Preview, error) {
	agreement, result, err := s.resolveNext(ctx, agreementID, asOf)
	if err != nil {
		return nil, err
	}
	preview := &Preview{
		AgreementID:    agreement.ID,
		StakeholderID:  agreement.StakeholderID,
		Currency:       result.Currency,
		PeriodStart:    result.Period.Start,
		PeriodEnd:      result.Period.End,
		IsProRata:      result.ProRataApplied,
		Lines:          make([]PreviewLine, len(result.Lines)),
		SubtotalAmount: result.Totals.Subtotal,
		TaxRatePercent: result.Totals.TaxRate,
		TaxAmount:      result.Totals.TaxAmount,
		TotalAmount:    result.Totals.Total,
	}
	for i, line := range result.Lines {
		preview.Lines[i] = PreviewLine{
			Description:      line.Description,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			Amount:           line.Amount,
			ProRataDays:      proRataStamp(line.ProRataDays, line.ProRated()),
			ProRataTotalDays: proRataStamp(line.ProRataTotalDays, line.ProRated()),
		}
	}
	return preview, nil
}

func (s *service) GenerateInvoice(ctx context.Context, input GenerateInput) (*models.Invoice, error) {
	agreement, result, err := s.resolveNext(ctx, input.AgreementID, input.AsOf)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now()
	dueDate := billing.DateOf(generatedAt.AddDate(0, 0, s.cfg.PaymentTermDays))

	row := &models.Invoice{
		AgreementID:    agreement.ID,
		StakeholderID:  agreement.StakeholderID,
		Status:         enums.InvoiceStatusDraft,
		Currency:       result.Currency,
		PeriodStart:    result.Period.Start,
		PeriodEnd:      result.Period.End,
		IsProRata:      result.ProRataApplied,
		SubtotalAmount: result.Totals.Subtotal,
		TaxRatePercent: result.Totals.TaxRate,
		TaxAmount:      result.Totals.TaxAmount,
		TotalAmount:    result.Totals.Total,
		DueDate:        &dueDate,
		Items:          make([]models.InvoiceLineItem, len(result.Lines)),
	}
	for i, line := range result.Lines {
		row.Items[i] = models.InvoiceLineItem{
			Description:      line.Description,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			Amount:           line.Amount,
			ProRataDays:      proRataStamp(line.ProRataDays, line.ProRated()),
			ProRataTotalDays: proRataStamp(line.ProRataTotalDays, line.ProRated()),
			Position:         i,
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		period := generatedAt.UTC().Format("200601")
		sequence, err := s.repo.NextNumberTx(tx, period)
		if err != nil {
			return err
		}
		row.InvoiceNumber = fmt.Sprintf("%s-%s-%04d", s.invoicePrefix(), period, sequence)
		if _, err := s.repo.CreateTx(tx, row); err != nil {
			return err
		}
		if err := s.agreementRepo.AdvanceLastBilledTx(tx, agreement.ID, result.Period.End); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceCreated,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   row.ID,
			Actor:         actorRef(input.ActorID),
			Version:       1,
			OccurredAt:    generatedAt,
			Data: payloads.InvoiceCreatedEvent{
				InvoiceID:     row.ID,
				InvoiceNumber: row.InvoiceNumber,
				AgreementID:   row.AgreementID,
				StakeholderID: row.StakeholderID,
				Currency:      row.Currency,
				PeriodStart:   row.PeriodStart,
				PeriodEnd:     row.PeriodEnd,
				IsProRata:     row.IsProRata,
				TotalAmount:   row.TotalAmount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate invoice")
	}
	return row, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Invoice, error) {
	next, err := enums.ParseInvoiceStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	row, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("invoice cannot move from %s to %s", row.Status, next))
	}

	from := row.Status
	now := s.now()
	row.Status = next
	switch next {
	case enums.InvoiceStatusSent:
		row.IssuedAt = &now
	case enums.InvoiceStatusPaid:
		row.PaidAt = &now
	case enums.InvoiceStatusCancelled:
		row.CancelledAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceStatusChanged,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   row.ID,
			Actor:         actorRef(actorID),
			Version:       1,
			OccurredAt:    now,
			Data: payloads.InvoiceStatusChangedEvent{
				InvoiceID:     row.ID,
				InvoiceNumber: row.InvoiceNumber,
				StakeholderID: row.StakeholderID,
				FromStatus:    from,
				ToStatus:      next,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice status")
	}
	return row, nil
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return s.findInvoice(ctx, id)
}

func (s *service) ListInvoices(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		stakeholderID: params.StakeholderID,
		agreementID:   params.AgreementID,
		limit:         pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseInvoiceStatus(params.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
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

// resolveNext loads the agreement and runs the calculator for its next
// billable period, mapping calculator errors onto the API error taxonomy.
func (s *service) resolveNext(ctx context.Context, agreementID uuid.UUID, asOf time.Time) (*models.ServiceAgreement, billing.PreviewResult, error) {
	if agreementID == uuid.Nil {
		return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeValidation, "agreement id is required")
	}
	agreement, err := s.agreementRepo.FindByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "agreement not found")
		}
		return nil, billing.PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup agreement")
	}
	if agreement.Direction != enums.ServiceDirectionOutgoing {
		return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invoices are generated from outgoing agreements")
	}
	if agreement.Status != enums.AgreementStatusActive {
		return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("agreement is %s", agreement.Status))
	}
	if !agreement.CycleType.IsRecurring() && agreement.LastBilledAt != nil {
		return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "one-off service already billed")
	}

	if asOf.IsZero() {
		asOf = s.now()
	}
	result, err := billing.Preview(agreements.BillingDefinition(agreement), asOf)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidPeriod):
			return nil, billing.PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "no billable period remains")
		case errors.Is(err, billing.ErrInvalidCycleConfiguration), errors.Is(err, billing.ErrInvalidLineItem):
			return nil, billing.PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "agreement is not billable")
		default:
			return nil, billing.PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve billing period")
		}
	}
	return agreement, result, nil
}

func (s *service) findInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup invoice")
	}
	return row, nil
}

func (s *service) invoicePrefix() string {
	if s.cfg.InvoiceNumberPrefix != "" {
		return s.cfg.InvoiceNumberPrefix
	}
	return "INV"
}

func proRataStamp(days int, proRated bool) *int {
	if !proRated {
		return nil
	}
	return &days
}

func actorRef(actorID uuid.UUID) *outbox.ActorRef {
	if actorID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actorID}
}
