package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
)

type stubOverdueRepo struct {
	rows       []models.Invoice
	listErr    error
	lastCutoff time.Time
	updated    []models.Invoice
	updateErr  error
}

func (s *stubOverdueRepo) ListDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	s.lastCutoff = cutoff
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.rows, nil
}

func (s *stubOverdueRepo) UpdateTx(tx *gorm.DB, invoice *models.Invoice) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, *invoice)
	return nil
}

type stubCronTxRunner struct{}

func (s *stubCronTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOnceEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubOnceEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func dueInvoice(status enums.InvoiceStatus, dueDate time.Time) models.Invoice {
	return models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-202403-0001",
		StakeholderID: uuid.New(),
		Status:        status,
		DueDate:       &dueDate,
		TotalAmount:   decimal.NewFromInt(550),
	}
}

func newOverdueJob(t *testing.T, repo *stubOverdueRepo, emitter *stubOnceEmitter, graceDays int) *InvoiceOverdueJob {
	t.Helper()
	job, err := NewInvoiceOverdueJob(repo, &stubCronTxRunner{}, emitter, testLogger(), config.BillingConfig{
		OverdueGraceDays: graceDays,
	})
	if err != nil {
		t.Fatalf("NewInvoiceOverdueJob: %v", err)
	}
	return job
}

func TestInvoiceOverdueMarksAndEmitsOnce(t *testing.T) {
	dueDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &stubOverdueRepo{rows: []models.Invoice{
		dueInvoice(enums.InvoiceStatusSent, dueDate),
		dueInvoice(enums.InvoiceStatusPartiallyPaid, dueDate),
	}}
	emitter := &stubOnceEmitter{}
	job := newOverdueJob(t, repo, emitter, 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updated) != 2 {
		t.Fatalf("expected 2 invoices marked, got %d", len(repo.updated))
	}
	for _, row := range repo.updated {
		if row.Status != enums.InvoiceStatusOverdue {
			t.Fatalf("unexpected status %s", row.Status)
		}
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 overdue events, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventInvoiceOverdue {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
}

func TestInvoiceOverdueGraceShiftsCutoff(t *testing.T) {
	repo := &stubOverdueRepo{}
	job := newOverdueJob(t, repo, &stubOnceEmitter{}, 3)
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	if !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
}

func TestInvoiceOverdueCollectsPerInvoiceErrors(t *testing.T) {
	dueDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &stubOverdueRepo{
		rows:      []models.Invoice{dueInvoice(enums.InvoiceStatusSent, dueDate)},
		updateErr: errors.New("write failed"),
	}
	job := newOverdueJob(t, repo, &stubOnceEmitter{}, 0)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}
