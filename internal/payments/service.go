package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

type paymentsRepository interface {
	CreateTx(tx *gorm.DB, payment *models.Payment) (*models.Payment, error)
	UpdateTx(tx *gorm.DB, payment *models.Payment) error
	NextNumberTx(tx *gorm.DB, period string) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, opts listQuery) ([]models.Payment, error)
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

// Service exposes payment generation and lifecycle semantics. Payments mirror
// invoices for incoming agreements, where the stakeholder bills us.
type Service interface {
	GeneratePayment(ctx context.Context, input GenerateInput) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo          paymentsRepository
	agreementRepo agreementsRepository
	tx            txRunner
	events        outboxEmitter
	cfg           config.BillingConfig
	now           func() time.Time
}

// GenerateInput identifies the agreement to record an obligation for.
type GenerateInput struct {
	AgreementID uuid.UUID
	AsOf        time.Time
	ActorID     uuid.UUID
}

// NewService builds a payment service backed by the provided dependencies.
func NewService(repo paymentsRepository, agreementRepo agreementsRepository, tx txRunner, events outboxEmitter, cfg config.BillingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
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

func (s *service) GeneratePayment(ctx context.Context, input GenerateInput) (*models.Payment, error) {
	agreement, result, err := s.resolveNext(ctx, input.AgreementID, input.AsOf)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now()
	dueDate := billing.DateOf(generatedAt.AddDate(0, 0, s.cfg.PaymentTermDays))

	row := &models.Payment{
		AgreementID:    agreement.ID,
		StakeholderID:  agreement.StakeholderID,
		Status:         enums.PaymentStatusPending,
		Currency:       result.Currency,
		PeriodStart:    result.Period.Start,
		PeriodEnd:      result.Period.End,
		IsProRata:      result.ProRataApplied,
		SubtotalAmount: result.Totals.Subtotal,
		TaxRatePercent: result.Totals.TaxRate,
		TaxAmount:      result.Totals.TaxAmount,
		TotalAmount:    result.Totals.Total,
		DueDate:        &dueDate,
		Items:          make([]models.PaymentLineItem, len(result.Lines)),
	}
	for i, line := range result.Lines {
		row.Items[i] = models.PaymentLineItem{
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
		row.PaymentNumber = fmt.Sprintf("%s-%s-%04d", s.paymentPrefix(), period, sequence)
		if _, err := s.repo.CreateTx(tx, row); err != nil {
			return err
		}
		if err := s.agreementRepo.AdvanceLastBilledTx(tx, agreement.ID, result.Period.End); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCreated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   row.ID,
			Actor:         actorRef(input.ActorID),
			Version:       1,
			OccurredAt:    generatedAt,
			Data: payloads.PaymentCreatedEvent{
				PaymentID:     row.ID,
				PaymentNumber: row.PaymentNumber,
				AgreementID:   row.AgreementID,
				StakeholderID: row.StakeholderID,
				Currency:      row.Currency,
				PeriodStart:   row.PeriodStart,
				PeriodEnd:     row.PeriodEnd,
				TotalAmount:   row.TotalAmount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate payment")
	}
	return row, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Payment, error) {
	next, err := enums.ParsePaymentStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	row, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment cannot move from %s to %s", row.Status, next))
	}

	from := row.Status
	now := s.now()
	row.Status = next
	switch next {
	case enums.PaymentStatusPaid:
		row.PaidAt = &now
	case enums.PaymentStatusCancelled:
		row.CancelledAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   row.ID,
			Actor:         actorRef(actorID),
			Version:       1,
			OccurredAt:    now,
			Data: payloads.PaymentStatusChangedEvent{
				PaymentID:     row.ID,
				PaymentNumber: row.PaymentNumber,
				StakeholderID: row.StakeholderID,
				FromStatus:    from,
				ToStatus:      next,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	return row, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.findPayment(ctx, id)
}

func (s *service) ListPayments(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		stakeholderID: params.StakeholderID,
		agreementID:   params.AgreementID,
		limit:         pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParsePaymentStatus(params.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
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
	if agreement.Direction != enums.ServiceDirectionIncoming {
		return nil, billing.PreviewResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payments are generated from incoming agreements")
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

func (s *service) findPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	return row, nil
}

func (s *service) paymentPrefix() string {
	if s.cfg.PaymentNumberPrefix != "" {
		return s.cfg.PaymentNumberPrefix
	}
	return "PAY"
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
