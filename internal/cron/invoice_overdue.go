package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/internal/billing"
	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/outbox/payloads"
)

const overdueBatchSize = 200

type overdueInvoicesRepository interface {
	ListDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error)
	UpdateTx(tx *gorm.DB, invoice *models.Invoice) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type onceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InvoiceOverdueJob marks sent invoices past their due date as overdue and
// emits the overdue event once per invoice.
type InvoiceOverdueJob struct {
	repo   overdueInvoicesRepository
	tx     txRunner
	events onceEmitter
	logg   *logger.Logger
	cfg    config.BillingConfig
	now    func() time.Time
}

// NewInvoiceOverdueJob builds the overdue sweep job.
func NewInvoiceOverdueJob(repo overdueInvoicesRepository, tx txRunner, events onceEmitter, logg *logger.Logger, cfg config.BillingConfig) (*InvoiceOverdueJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &InvoiceOverdueJob{
		repo:   repo,
		tx:     tx,
		events: events,
		logg:   logg,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// Name implements Job.
func (j *InvoiceOverdueJob) Name() string {
	return "invoice-overdue"
}

// Run implements Job. Invoices whose due date plus the configured grace
// window has passed move to overdue. Each failure is collected and the sweep
// continues.
func (j *InvoiceOverdueJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := billing.DateOf(now.AddDate(0, 0, -j.cfg.OverdueGraceDays)).AddDate(0, 0, -1)

	rows, err := j.repo.ListDueBefore(ctx, cutoff, overdueBatchSize)
	if err != nil {
		return fmt.Errorf("list due invoices: %w", err)
	}

	var errs error
	marked := 0
	for i := range rows {
		row := rows[i]
		if !row.Status.CanTransitionTo(enums.InvoiceStatusOverdue) {
			continue
		}
		if err := j.markOverdue(ctx, &row, now); err != nil {
			errs = collect(errs, fmt.Errorf("invoice %s: %w", row.InvoiceNumber, err))
			continue
		}
		marked++
	}

	if marked > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", marked), "invoices marked overdue")
	}
	return errs
}

func (j *InvoiceOverdueJob) markOverdue(ctx context.Context, row *models.Invoice, now time.Time) error {
	row.Status = enums.InvoiceStatusOverdue
	return j.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.UpdateTx(tx, row); err != nil {
			return err
		}
		var dueDate time.Time
		if row.DueDate != nil {
			dueDate = *row.DueDate
		}
		return j.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceOverdue,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   row.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.InvoiceOverdueEvent{
				InvoiceID:     row.ID,
				InvoiceNumber: row.InvoiceNumber,
				StakeholderID: row.StakeholderID,
				DueDate:       dueDate,
				OverdueAt:     now,
				TotalAmount:   row.TotalAmount.StringFixed(2),
			},
		})
	})
}
