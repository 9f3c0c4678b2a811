package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/outbox/payloads"
)

type stubPaymentRepo struct {
	created    *models.Payment
	updated    *models.Payment
	nextNumber int64
	findResult *models.Payment
	listRows   []models.Payment
	lastQuery  listQuery
}

func (s *stubPaymentRepo) CreateTx(tx *gorm.DB, payment *models.Payment) (*models.Payment, error) {
	s.created = payment
	return payment, nil
}

func (s *stubPaymentRepo) UpdateTx(tx *gorm.DB, payment *models.Payment) error {
	s.updated = payment
	return nil
}

func (s *stubPaymentRepo) NextNumberTx(tx *gorm.DB, period string) (int64, error) {
	return s.nextNumber, nil
}

func (s *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubPaymentRepo) List(ctx context.Context, opts listQuery) ([]models.Payment, error) {
	s.lastQuery = opts
	return s.listRows, nil
}

type stubPaymentAgreementRepo struct {
	agreement     *models.ServiceAgreement
	advancedUntil time.Time
}

func (s *stubPaymentAgreementRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error) {
	if s.agreement == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.agreement, nil
}

func (s *stubPaymentAgreementRepo) AdvanceLastBilledTx(tx *gorm.DB, agreementID uuid.UUID, billedThrough time.Time) error {
	s.advancedUntil = billedThrough
	return nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func intPtr(v int) *int {
	return &v
}

func incomingAgreement() *models.ServiceAgreement {
	return &models.ServiceAgreement{
		ID:             uuid.New(),
		StakeholderID:  uuid.New(),
		Name:           "Office cleaning",
		Direction:      enums.ServiceDirectionIncoming,
		Status:         enums.AgreementStatusActive,
		CycleType:      enums.CycleTypeWeekly,
		DayOfWeek:      intPtr(1),
		TaxRatePercent: decimal.Zero,
		Currency:       "USD",
		StartDate:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Items: []models.AgreementLineItem{
			{Description: "Cleaning visit", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(80)},
		},
	}
}

func newPaymentService(t *testing.T, repo *stubPaymentRepo, agreementRepo *stubPaymentAgreementRepo, emitter *stubEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, agreementRepo, &stubTxRunner{}, emitter, config.BillingConfig{
		PaymentNumberPrefix: "PAY",
		PaymentTermDays:     14,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGeneratePaymentWeeklyCycle(t *testing.T) {
	repo := &stubPaymentRepo{nextNumber: 3}
	agreementRepo := &stubPaymentAgreementRepo{agreement: incomingAgreement()}
	emitter := &stubEmitter{}
	svc := newPaymentService(t, repo, agreementRepo, emitter)

	row, err := svc.GeneratePayment(context.Background(), GenerateInput{
		AgreementID: agreementRepo.agreement.ID,
		ActorID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(row.PaymentNumber, "PAY-") || !strings.HasSuffix(row.PaymentNumber, "-0003") {
		t.Fatalf("unexpected payment number %q", row.PaymentNumber)
	}
	if row.Status != enums.PaymentStatusPending {
		t.Fatalf("unexpected status %s", row.Status)
	}
	wantStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !row.PeriodStart.Equal(wantStart) || !row.PeriodEnd.Equal(wantEnd) {
		t.Fatalf("unexpected period %s..%s", row.PeriodStart, row.PeriodEnd)
	}
	if row.TotalAmount.StringFixed(2) != "160.00" {
		t.Fatalf("unexpected total %s", row.TotalAmount)
	}
	if !agreementRepo.advancedUntil.Equal(wantEnd) {
		t.Fatalf("expected last billed advanced to %s, got %s", wantEnd, agreementRepo.advancedUntil)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventPaymentCreated {
		t.Fatalf("expected payment created event, got %+v", emitter.events)
	}
	payload, ok := emitter.events[0].Data.(payloads.PaymentCreatedEvent)
	if !ok || payload.TotalAmount != "160.00" {
		t.Fatalf("unexpected payload %+v", emitter.events[0].Data)
	}
}

func TestGeneratePaymentAdvancesFromLastBilled(t *testing.T) {
	agreement := incomingAgreement()
	billed := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	agreement.LastBilledAt = &billed
	repo := &stubPaymentRepo{nextNumber: 1}
	agreementRepo := &stubPaymentAgreementRepo{agreement: agreement}
	svc := newPaymentService(t, repo, agreementRepo, &stubEmitter{})

	row, err := svc.GeneratePayment(context.Background(), GenerateInput{AgreementID: agreement.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !row.PeriodStart.Equal(wantStart) {
		t.Fatalf("expected period to start after last billed, got %s", row.PeriodStart)
	}
}

func TestGeneratePaymentRejectsOutgoingAgreement(t *testing.T) {
	agreement := incomingAgreement()
	agreement.Direction = enums.ServiceDirectionOutgoing
	agreementRepo := &stubPaymentAgreementRepo{agreement: agreement}
	svc := newPaymentService(t, &stubPaymentRepo{}, agreementRepo, &stubEmitter{})

	_, err := svc.GeneratePayment(context.Background(), GenerateInput{AgreementID: agreement.ID})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusPaidStampsPaidAt(t *testing.T) {
	repo := &stubPaymentRepo{findResult: &models.Payment{
		ID:            uuid.New(),
		PaymentNumber: "PAY-202403-0001",
		StakeholderID: uuid.New(),
		Status:        enums.PaymentStatusPending,
	}}
	emitter := &stubEmitter{}
	svc := newPaymentService(t, repo, &stubPaymentAgreementRepo{}, emitter)

	row, err := svc.UpdateStatus(context.Background(), repo.findResult.ID, "paid", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Status != enums.PaymentStatusPaid || row.PaidAt == nil {
		t.Fatalf("expected paid with paid_at, got %s %v", row.Status, row.PaidAt)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventPaymentStatusChanged {
		t.Fatalf("expected status changed event, got %+v", emitter.events)
	}
}

func TestUpdateStatusTerminalConflicts(t *testing.T) {
	repo := &stubPaymentRepo{findResult: &models.Payment{
		ID:     uuid.New(),
		Status: enums.PaymentStatusCancelled,
	}}
	svc := newPaymentService(t, repo, &stubPaymentAgreementRepo{}, &stubEmitter{})

	_, err := svc.UpdateStatus(context.Background(), repo.findResult.ID, "paid", uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListPaymentsFilters(t *testing.T) {
	repo := &stubPaymentRepo{listRows: []models.Payment{
		{ID: uuid.New(), Status: enums.PaymentStatusPending, CreatedAt: time.Now()},
	}}
	svc := newPaymentService(t, repo, &stubPaymentAgreementRepo{}, &stubEmitter{})

	result, err := svc.ListPayments(context.Background(), ListParams{Status: "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if repo.lastQuery.status == nil || *repo.lastQuery.status != enums.PaymentStatusPending {
		t.Fatalf("expected status filter")
	}
}
