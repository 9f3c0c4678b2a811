package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/api/responses"
	"github.com/calderhq/opsdesk-backend/api/validators"
	"github.com/calderhq/opsdesk-backend/internal/agreements"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type cycleRequest struct {
	Type         string `json:"type" validate:"required"`
	DayOfMonth   *int   `json:"day_of_month,omitempty"`
	DayOfWeek    *int   `json:"day_of_week,omitempty"`
	MonthOfYear  *int   `json:"month_of_year,omitempty"`
	IntervalDays *int   `json:"interval_days,omitempty"`
}

func (c cycleRequest) toInput() agreements.CycleInput {
	return agreements.CycleInput{
		Type:         c.Type,
		DayOfMonth:   c.DayOfMonth,
		DayOfWeek:    c.DayOfWeek,
		MonthOfYear:  c.MonthOfYear,
		IntervalDays: c.IntervalDays,
	}
}

type agreementItemRequest struct {
	Description string          `json:"description" validate:"required,min=1"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func agreementItems(items []agreementItemRequest) []agreements.LineItemInput {
	out := make([]agreements.LineItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, agreements.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

type agreementCreateRequest struct {
	StakeholderID  uuid.UUID              `json:"stakeholder_id" validate:"required"`
	Name           string                 `json:"name" validate:"required,min=1"`
	Direction      string                 `json:"direction" validate:"required,oneof=outgoing incoming"`
	Cycle          cycleRequest           `json:"cycle" validate:"required"`
	TaxRatePercent decimal.Decimal        `json:"tax_rate_percent"`
	Currency       string                 `json:"currency,omitempty" validate:"omitempty,len=3"`
	StartDate      string                 `json:"start_date" validate:"required"`
	EndDate        *string                `json:"end_date,omitempty"`
	Items          []agreementItemRequest `json:"items" validate:"required,min=1,dive"`
}

type agreementUpdateRequest struct {
	Name           *string                `json:"name,omitempty" validate:"omitempty,min=1"`
	Status         *string                `json:"status,omitempty"`
	Cycle          *cycleRequest          `json:"cycle,omitempty"`
	TaxRatePercent *decimal.Decimal       `json:"tax_rate_percent,omitempty"`
	EndDate        *string                `json:"end_date,omitempty"`
	Items          []agreementItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// AgreementCreate opens a recurring service agreement.
func AgreementCreate(svc agreements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreement service unavailable"))
			return
		}

		var body agreementCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := parseDate(body.StartDate, "start_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := parseOptionalDate(body.EndDate, "end_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateAgreement(r.Context(), agreements.CreateAgreementInput{
			StakeholderID:  body.StakeholderID,
			Name:           body.Name,
			Direction:      body.Direction,
			Cycle:          body.Cycle.toInput(),
			TaxRatePercent: body.TaxRatePercent,
			Currency:       body.Currency,
			StartDate:      start,
			EndDate:        end,
			Items:          agreementItems(body.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// AgreementUpdate adjusts the mutable fields of an agreement.
func AgreementUpdate(svc agreements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "agreementID"), "agreementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body agreementUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		end, err := parseOptionalDate(body.EndDate, "end_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := agreements.UpdateAgreementInput{
			Name:           body.Name,
			Status:         body.Status,
			TaxRatePercent: body.TaxRatePercent,
			EndDate:        end,
		}
		if body.Cycle != nil {
			cycle := body.Cycle.toInput()
			input.Cycle = &cycle
		}
		if body.Items != nil {
			input.Items = agreementItems(body.Items)
		}

		row, err := svc.UpdateAgreement(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// AgreementDetail returns one agreement with its items.
func AgreementDetail(svc agreements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "agreementID"), "agreementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetAgreement(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// AgreementList returns paginated agreements with optional filters.
func AgreementList(svc agreements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agreement service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := agreements.ListParams{
			Status:    r.URL.Query().Get("status"),
			Direction: r.URL.Query().Get("direction"),
			Params:    page,
		}
		if stakeholder, err := validators.ParseQueryUUID(r, "stakeholder_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if stakeholder != uuid.Nil {
			params.StakeholderID = &stakeholder
		}

		result, err := svc.ListAgreements(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
