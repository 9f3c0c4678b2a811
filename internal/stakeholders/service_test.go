package stakeholders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type stubStakeholderRepo struct {
	created    *models.Stakeholder
	createErr  error
	updated    *models.Stakeholder
	updateErr  error
	findResult *models.Stakeholder
	findErr    error
	listRows   []models.Stakeholder
	listErr    error
	lastQuery  listQuery
}

func (s *stubStakeholderRepo) Create(ctx context.Context, stakeholder *models.Stakeholder) (*models.Stakeholder, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = stakeholder
	return stakeholder, nil
}

func (s *stubStakeholderRepo) Update(ctx context.Context, stakeholder *models.Stakeholder) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = stakeholder
	return nil
}

func (s *stubStakeholderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Stakeholder, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubStakeholderRepo) List(ctx context.Context, opts listQuery) ([]models.Stakeholder, error) {
	s.lastQuery = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

func TestCreateStakeholderNormalizesInput(t *testing.T) {
	repo := &stubStakeholderRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	created, err := svc.CreateStakeholder(context.Background(), CreateStakeholderInput{
		Name:            "  Acme Corp  ",
		Email:           " Billing@Acme.COM ",
		DefaultCurrency: "eur",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Name != "Acme Corp" {
		t.Fatalf("unexpected name %q", created.Name)
	}
	if created.Email != "billing@acme.com" {
		t.Fatalf("unexpected email %q", created.Email)
	}
	if created.DefaultCurrency != "EUR" {
		t.Fatalf("unexpected currency %q", created.DefaultCurrency)
	}
}

func TestCreateStakeholderDefaultsCurrency(t *testing.T) {
	repo := &stubStakeholderRepo{}
	svc, _ := NewService(repo)

	created, err := svc.CreateStakeholder(context.Background(), CreateStakeholderInput{
		Name:  "Acme Corp",
		Email: "billing@acme.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.DefaultCurrency != "USD" {
		t.Fatalf("unexpected currency %q", created.DefaultCurrency)
	}
}

func TestCreateStakeholderValidation(t *testing.T) {
	repo := &stubStakeholderRepo{}
	svc, _ := NewService(repo)

	cases := []struct {
		name  string
		input CreateStakeholderInput
	}{
		{"missing name", CreateStakeholderInput{Email: "a@b.com"}},
		{"missing email", CreateStakeholderInput{Name: "Acme"}},
		{"bad currency", CreateStakeholderInput{Name: "Acme", Email: "a@b.com", DefaultCurrency: "DOLLARS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateStakeholder(context.Background(), tc.input)
			if err == nil {
				t.Fatalf("expected error")
			}
			var appErr *pkgerrors.Error
			if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateStakeholderDuplicateEmail(t *testing.T) {
	repo := &stubStakeholderRepo{createErr: errors.New(`duplicate key value violates unique constraint "stakeholders_email_key"`)}
	svc, _ := NewService(repo)

	_, err := svc.CreateStakeholder(context.Background(), CreateStakeholderInput{Name: "Acme", Email: "a@b.com"})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateStakeholderNotFound(t *testing.T) {
	repo := &stubStakeholderRepo{}
	svc, _ := NewService(repo)

	name := "New Name"
	_, err := svc.UpdateStakeholder(context.Background(), uuid.New(), UpdateStakeholderInput{Name: &name})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStakeholderAppliesPartialFields(t *testing.T) {
	existing := &models.Stakeholder{
		ID:              uuid.New(),
		Name:            "Acme Corp",
		Email:           "billing@acme.com",
		DefaultCurrency: "USD",
	}
	repo := &stubStakeholderRepo{findResult: existing}
	svc, _ := NewService(repo)

	currency := "gbp"
	updated, err := svc.UpdateStakeholder(context.Background(), existing.ID, UpdateStakeholderInput{DefaultCurrency: &currency})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DefaultCurrency != "GBP" {
		t.Fatalf("unexpected currency %q", updated.DefaultCurrency)
	}
	if updated.Name != "Acme Corp" {
		t.Fatalf("name should be untouched, got %q", updated.Name)
	}
	if repo.updated == nil {
		t.Fatalf("expected update call")
	}
}

func TestListStakeholdersPaginates(t *testing.T) {
	now := time.Now()
	rows := make([]models.Stakeholder, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, models.Stakeholder{
			ID:        uuid.New(),
			Name:      "Acme",
			Email:     "a@b.com",
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	repo := &stubStakeholderRepo{listRows: rows}
	svc, _ := NewService(repo)

	result, err := svc.ListStakeholders(context.Background(), ListParams{Params: pagination.Params{Limit: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatalf("expected next cursor")
	}
	if repo.lastQuery.limit != 3 {
		t.Fatalf("expected buffered limit 3, got %d", repo.lastQuery.limit)
	}
}

func TestListStakeholdersRejectsBadCursor(t *testing.T) {
	repo := &stubStakeholderRepo{}
	svc, _ := NewService(repo)

	_, err := svc.ListStakeholders(context.Background(), ListParams{Params: pagination.Params{Cursor: "not-base64!!"}})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
