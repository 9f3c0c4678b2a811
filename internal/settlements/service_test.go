package settlements

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
)

type stubSettlementRepo struct {
	created    *models.Settlement
	createErr  error
	updated    *models.Settlement
	updateErr  error
	replaced   []models.SettlementLineItem
	findResult *models.Settlement
	findErr    error
	listRows   []models.Settlement
	listErr    error
}

func (s *stubSettlementRepo) CreateTx(tx *gorm.DB, settlement *models.Settlement) (*models.Settlement, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = settlement
	return settlement, nil
}

func (s *stubSettlementRepo) UpdateTx(tx *gorm.DB, settlement *models.Settlement) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = settlement
	return nil
}

func (s *stubSettlementRepo) ReplaceItemsTx(tx *gorm.DB, settlementID uuid.UUID, items []models.SettlementLineItem) error {
	s.replaced = items
	return nil
}

func (s *stubSettlementRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubSettlementRepo) List(ctx context.Context, opts listQuery) ([]models.Settlement, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

type stubTxRunner struct {
	err error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func newSettlementService(t *testing.T, repo *stubSettlementRepo, emitter *stubEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, &stubTxRunner{}, emitter)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateSettlementComputesTotals(t *testing.T) {
	repo := &stubSettlementRepo{}
	svc := newSettlementService(t, repo, &stubEmitter{})

	created, err := svc.CreateSettlement(context.Background(), uuid.New(), CreateSettlementInput{
		Title:          "March travel",
		TaxRatePercent: dec(t, "10"),
		Items: []LineItemInput{
			{Description: "Taxi", Quantity: dec(t, "2"), UnitPrice: dec(t, "15.50")},
			{Description: "Hotel", Quantity: dec(t, "1"), UnitPrice: dec(t, "120")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.SettlementStatusDraft {
		t.Fatalf("unexpected status %s", created.Status)
	}
	if got := created.SubtotalAmount.StringFixed(2); got != "151.00" {
		t.Fatalf("unexpected subtotal %s", got)
	}
	if got := created.TaxAmount.StringFixed(2); got != "15.10" {
		t.Fatalf("unexpected tax %s", got)
	}
	if got := created.TotalAmount.StringFixed(2); got != "166.10" {
		t.Fatalf("unexpected total %s", got)
	}
	if len(created.Items) != 2 || created.Items[1].Position != 1 {
		t.Fatalf("unexpected items %+v", created.Items)
	}
}

func TestCreateSettlementRejectsEmptyItems(t *testing.T) {
	repo := &stubSettlementRepo{}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.CreateSettlement(context.Background(), uuid.New(), CreateSettlementInput{Title: "Empty"})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSettlementRejectsNegativeQuantity(t *testing.T) {
	repo := &stubSettlementRepo{}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.CreateSettlement(context.Background(), uuid.New(), CreateSettlementInput{
		Title: "Bad",
		Items: []LineItemInput{{Description: "x", Quantity: dec(t, "-1"), UnitPrice: dec(t, "5")}},
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitSettlementStampsTimestamp(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusDraft,
		Items:  []models.SettlementLineItem{{Description: "Taxi"}},
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	submitted, err := svc.SubmitSettlement(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitted.Status != enums.SettlementStatusSubmitted {
		t.Fatalf("unexpected status %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Fatalf("expected submitted_at stamped")
	}
}

func TestSubmitApprovedSettlementConflicts(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusApproved,
		Items:  []models.SettlementLineItem{{Description: "Taxi"}},
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.SubmitSettlement(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestApproveSettlementEmitsEvent(t *testing.T) {
	claimant := uuid.New()
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:          uuid.New(),
		ClaimantID:  claimant,
		Status:      enums.SettlementStatusSubmitted,
		Currency:    "USD",
		TotalAmount: dec(t, "166.10"),
	}}
	emitter := &stubEmitter{}
	svc := newSettlementService(t, repo, emitter)

	approved, err := svc.ApproveSettlement(context.Background(), uuid.New(), repo.findResult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != enums.SettlementStatusApproved {
		t.Fatalf("unexpected status %s", approved.Status)
	}
	if approved.ApprovedAt == nil {
		t.Fatalf("expected approved_at stamped")
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventSettlementApproved {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
}

func TestApproveOwnSettlementForbidden(t *testing.T) {
	claimant := uuid.New()
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:         uuid.New(),
		ClaimantID: claimant,
		Status:     enums.SettlementStatusSubmitted,
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.ApproveSettlement(context.Background(), claimant, repo.findResult.ID)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRejectSettlementRequiresReason(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusSubmitted,
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.RejectSettlement(context.Background(), uuid.New(), "  ")
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectedSettlementCanBeResubmitted(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusRejected,
		Items:  []models.SettlementLineItem{{Description: "Taxi"}},
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	// rejected returns to draft first
	_, err := svc.SubmitSettlement(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for direct resubmit, got %v", err)
	}
}

func TestMarkPaidEmitsEventAndStamps(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:          uuid.New(),
		ClaimantID:  uuid.New(),
		Status:      enums.SettlementStatusApproved,
		Currency:    "USD",
		TotalAmount: dec(t, "50.00"),
	}}
	emitter := &stubEmitter{}
	svc := newSettlementService(t, repo, emitter)

	paid, err := svc.MarkPaid(context.Background(), repo.findResult.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != enums.SettlementStatusPaid {
		t.Fatalf("unexpected status %s", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatalf("expected paid_at stamped")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSettlementPaid {
		t.Fatalf("expected settlement_paid event, got %+v", emitter.events)
	}
}

func TestMarkPaidFromDraftConflicts(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusDraft,
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	_, err := svc.MarkPaid(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateSettlementOnlyDraft(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusSubmitted,
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	title := "New title"
	_, err := svc.UpdateSettlement(context.Background(), uuid.New(), UpdateSettlementInput{Title: &title})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateSettlementRecomputesOnTaxChange(t *testing.T) {
	repo := &stubSettlementRepo{findResult: &models.Settlement{
		ID:     uuid.New(),
		Status: enums.SettlementStatusDraft,
		Title:  "Travel",
		Items: []models.SettlementLineItem{
			{Description: "Taxi", Quantity: dec(t, "1"), UnitPrice: dec(t, "100"), Amount: dec(t, "100")},
		},
	}}
	svc := newSettlementService(t, repo, &stubEmitter{})

	rate := dec(t, "20")
	updated, err := svc.UpdateSettlement(context.Background(), uuid.New(), UpdateSettlementInput{TaxRatePercent: &rate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := updated.TaxAmount.StringFixed(2); got != "20.00" {
		t.Fatalf("unexpected tax %s", got)
	}
	if got := updated.TotalAmount.StringFixed(2); got != "120.00" {
		t.Fatalf("unexpected total %s", got)
	}
}
