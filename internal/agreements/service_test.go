package agreements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
)

type stubAgreementRepo struct {
	created    *models.ServiceAgreement
	createErr  error
	updated    *models.ServiceAgreement
	updateErr  error
	replaced   []models.AgreementLineItem
	findResult *models.ServiceAgreement
	findErr    error
	listRows   []models.ServiceAgreement
	listErr    error
	lastQuery  listQuery
}

func (s *stubAgreementRepo) CreateTx(tx *gorm.DB, agreement *models.ServiceAgreement) (*models.ServiceAgreement, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = agreement
	return agreement, nil
}

func (s *stubAgreementRepo) UpdateTx(tx *gorm.DB, agreement *models.ServiceAgreement) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = agreement
	return nil
}

func (s *stubAgreementRepo) ReplaceItemsTx(tx *gorm.DB, agreementID uuid.UUID, items []models.AgreementLineItem) error {
	s.replaced = items
	return nil
}

func (s *stubAgreementRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceAgreement, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubAgreementRepo) List(ctx context.Context, opts listQuery) ([]models.ServiceAgreement, error) {
	s.lastQuery = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

type stubAgreementStakeholderRepo struct {
	stakeholder *models.Stakeholder
	err         error
}

func (s *stubAgreementStakeholderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.stakeholder == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.stakeholder, nil
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

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func intPtr(v int) *int {
	return &v
}

func newAgreementService(t *testing.T, repo *stubAgreementRepo, stakeholders *stubAgreementStakeholderRepo) Service {
	t.Helper()
	svc, err := NewService(repo, stakeholders, &stubTxRunner{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validCreateInput(stakeholderID uuid.UUID) CreateAgreementInput {
	return CreateAgreementInput{
		StakeholderID: stakeholderID,
		Name:          "Hosting retainer",
		Direction:     "outgoing",
		Cycle:         CycleInput{Type: "monthly", DayOfMonth: intPtr(1)},
		Currency:      "usd",
		StartDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []LineItemInput{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)},
		},
	}
}

func TestCreateAgreementNormalizes(t *testing.T) {
	stakeholderID := uuid.New()
	repo := &stubAgreementRepo{}
	stakeholders := &stubAgreementStakeholderRepo{stakeholder: &models.Stakeholder{ID: stakeholderID}}
	svc := newAgreementService(t, repo, stakeholders)

	created, err := svc.CreateAgreement(context.Background(), validCreateInput(stakeholderID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.AgreementStatusActive {
		t.Fatalf("unexpected status %s", created.Status)
	}
	if created.Currency != "USD" {
		t.Fatalf("unexpected currency %q", created.Currency)
	}
	if created.CycleType != enums.CycleTypeMonthly {
		t.Fatalf("unexpected cycle type %s", created.CycleType)
	}
	if len(created.Items) != 1 || created.Items[0].Position != 0 {
		t.Fatalf("unexpected items %+v", created.Items)
	}
}

func TestCreateAgreementRejectsBadCycle(t *testing.T) {
	stakeholderID := uuid.New()
	repo := &stubAgreementRepo{}
	stakeholders := &stubAgreementStakeholderRepo{stakeholder: &models.Stakeholder{ID: stakeholderID}}
	svc := newAgreementService(t, repo, stakeholders)

	input := validCreateInput(stakeholderID)
	input.Cycle = CycleInput{Type: "monthly", DayOfMonth: intPtr(31)}
	_, err := svc.CreateAgreement(context.Background(), input)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAgreementStakeholderNotFound(t *testing.T) {
	repo := &stubAgreementRepo{}
	stakeholders := &stubAgreementStakeholderRepo{}
	svc := newAgreementService(t, repo, stakeholders)

	_, err := svc.CreateAgreement(context.Background(), validCreateInput(uuid.New()))
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateAgreementRejectsEndBeforeStart(t *testing.T) {
	stakeholderID := uuid.New()
	repo := &stubAgreementRepo{}
	stakeholders := &stubAgreementStakeholderRepo{stakeholder: &models.Stakeholder{ID: stakeholderID}}
	svc := newAgreementService(t, repo, stakeholders)

	input := validCreateInput(stakeholderID)
	end := input.StartDate.AddDate(0, 0, -1)
	input.EndDate = &end
	_, err := svc.CreateAgreement(context.Background(), input)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAgreementEndedConflicts(t *testing.T) {
	repo := &stubAgreementRepo{findResult: &models.ServiceAgreement{
		ID:     uuid.New(),
		Status: enums.AgreementStatusEnded,
	}}
	svc := newAgreementService(t, repo, &stubAgreementStakeholderRepo{})

	name := "x"
	_, err := svc.UpdateAgreement(context.Background(), uuid.New(), UpdateAgreementInput{Name: &name})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateAgreementCycleRoundTrip(t *testing.T) {
	repo := &stubAgreementRepo{findResult: &models.ServiceAgreement{
		ID:         uuid.New(),
		Status:     enums.AgreementStatusActive,
		CycleType:  enums.CycleTypeMonthly,
		DayOfMonth: intPtr(1),
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	svc := newAgreementService(t, repo, &stubAgreementStakeholderRepo{})

	updated, err := svc.UpdateAgreement(context.Background(), uuid.New(), UpdateAgreementInput{
		Cycle: &CycleInput{Type: "interval_days", IntervalDays: intPtr(14)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CycleType != enums.CycleTypeIntervalDays {
		t.Fatalf("unexpected cycle type %s", updated.CycleType)
	}
	if updated.IntervalDays == nil || *updated.IntervalDays != 14 {
		t.Fatalf("unexpected interval days %v", updated.IntervalDays)
	}
	if updated.DayOfMonth != nil {
		t.Fatalf("expected old anchor cleared")
	}
}

func TestBillingDefinitionMapsAgreement(t *testing.T) {
	lastBilled := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	m := &models.ServiceAgreement{
		CycleType:      enums.CycleTypeMonthly,
		DayOfMonth:     intPtr(1),
		TaxRatePercent: dec(t, "8.25"),
		Currency:       "USD",
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastBilledAt:   &lastBilled,
		Items: []models.AgreementLineItem{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)},
		},
	}
	def := BillingDefinition(m)
	if def.Cycle.Type != enums.CycleTypeMonthly || def.Cycle.DayOfMonth != 1 {
		t.Fatalf("unexpected cycle %+v", def.Cycle)
	}
	if len(def.Items) != 1 || def.Items[0].Description != "Hosting" {
		t.Fatalf("unexpected items %+v", def.Items)
	}
	if def.LastBilledAt == nil || !def.LastBilledAt.Equal(lastBilled) {
		t.Fatalf("unexpected last billed %v", def.LastBilledAt)
	}
}

func TestListAgreementsFilters(t *testing.T) {
	repo := &stubAgreementRepo{listRows: []models.ServiceAgreement{
		{ID: uuid.New(), Status: enums.AgreementStatusActive, CreatedAt: time.Now()},
	}}
	svc := newAgreementService(t, repo, &stubAgreementStakeholderRepo{})

	result, err := svc.ListAgreements(context.Background(), ListParams{Status: "active", Direction: "outgoing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if repo.lastQuery.status == nil || *repo.lastQuery.status != enums.AgreementStatusActive {
		t.Fatalf("expected status filter")
	}
	if repo.lastQuery.direction == nil || *repo.lastQuery.direction != enums.ServiceDirectionOutgoing {
		t.Fatalf("expected direction filter")
	}
}
