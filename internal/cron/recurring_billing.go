package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/internal/agreements"
	"github.com/calderhq/opsdesk-backend/internal/billing"
	"github.com/calderhq/opsdesk-backend/internal/invoices"
	"github.com/calderhq/opsdesk-backend/internal/payments"
	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type activeAgreementsLister interface {
	ListActiveByDirection(ctx context.Context, direction enums.ServiceDirection) ([]models.ServiceAgreement, error)
}

type invoiceGenerator interface {
	GenerateInvoice(ctx context.Context, input invoices.GenerateInput) (*models.Invoice, error)
}

type paymentGenerator interface {
	GeneratePayment(ctx context.Context, input payments.GenerateInput) (*models.Payment, error)
}

// RecurringBillingJob walks active agreements and generates the next billing
// document once its period has fully elapsed. One invoice or payment is
// produced per agreement per pass; a backlog catches up over successive ticks.
type RecurringBillingJob struct {
	agreementRepo activeAgreementsLister
	invoiceSvc    invoiceGenerator
	paymentSvc    paymentGenerator
	logg          *logger.Logger
	now           func() time.Time
}

// NewRecurringBillingJob builds the recurring billing sweep job.
func NewRecurringBillingJob(agreementRepo activeAgreementsLister, invoiceSvc invoiceGenerator, paymentSvc paymentGenerator, logg *logger.Logger) (*RecurringBillingJob, error) {
	if agreementRepo == nil {
		return nil, fmt.Errorf("agreement repository required")
	}
	if invoiceSvc == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	if paymentSvc == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RecurringBillingJob{
		agreementRepo: agreementRepo,
		invoiceSvc:    invoiceSvc,
		paymentSvc:    paymentSvc,
		logg:          logg,
		now:           time.Now,
	}, nil
}

// Name implements Job.
func (j *RecurringBillingJob) Name() string {
	return "recurring-billing"
}

// Run implements Job. Errors on individual agreements are collected so one
// broken agreement never blocks the rest of the sweep.
func (j *RecurringBillingJob) Run(ctx context.Context) error {
	today := billing.DateOf(j.now())

	var errs error
	errs = collect(errs, j.sweep(ctx, enums.ServiceDirectionOutgoing, today))
	errs = collect(errs, j.sweep(ctx, enums.ServiceDirectionIncoming, today))
	return errs
}

func (j *RecurringBillingJob) sweep(ctx context.Context, direction enums.ServiceDirection, today time.Time) error {
	rows, err := j.agreementRepo.ListActiveByDirection(ctx, direction)
	if err != nil {
		return fmt.Errorf("list %s agreements: %w", direction, err)
	}

	var errs error
	generated := 0
	for i := range rows {
		agreement := rows[i]
		due, err := nextPeriodElapsed(&agreement, today)
		if err != nil {
			errs = collect(errs, fmt.Errorf("agreement %s: %w", agreement.ID, err))
			continue
		}
		if !due {
			continue
		}
		if err := j.generate(ctx, direction, agreement.ID); err != nil {
			errs = collect(errs, fmt.Errorf("agreement %s: %w", agreement.ID, err))
			continue
		}
		generated++
	}

	if generated > 0 {
		fields := j.logg.WithFields(ctx, map[string]any{"direction": direction.String(), "count": generated})
		j.logg.Info(fields, "recurring billing documents generated")
	}
	return errs
}

func (j *RecurringBillingJob) generate(ctx context.Context, direction enums.ServiceDirection, agreementID uuid.UUID) error {
	if direction == enums.ServiceDirectionOutgoing {
		_, err := j.invoiceSvc.GenerateInvoice(ctx, invoices.GenerateInput{AgreementID: agreementID})
		return err
	}
	_, err := j.paymentSvc.GeneratePayment(ctx, payments.GenerateInput{AgreementID: agreementID})
	return err
}

// nextPeriodElapsed reports whether the agreement's next billing period has
// fully passed as of today. One-off services are due once their start date
// arrives and never again after billing.
func nextPeriodElapsed(agreement *models.ServiceAgreement, today time.Time) (bool, error) {
	if !agreement.CycleType.IsRecurring() {
		if agreement.LastBilledAt != nil {
			return false, nil
		}
		return !billing.DateOf(agreement.StartDate).After(today), nil
	}

	def := agreements.BillingDefinition(agreement)
	reference := billing.DateOf(def.StartDate)
	if def.LastBilledAt != nil {
		reference = billing.DateOf(*def.LastBilledAt).AddDate(0, 0, 1)
	}

	period, err := billing.ResolvePeriod(def.Cycle, reference, def.EndDate)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPeriod) {
			// service ended; nothing left to bill
			return false, nil
		}
		return false, err
	}
	return period.End.Before(today), nil
}
