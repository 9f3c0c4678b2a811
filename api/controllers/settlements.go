package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderhq/opsdesk-backend/api/responses"
	"github.com/calderhq/opsdesk-backend/api/validators"
	"github.com/calderhq/opsdesk-backend/internal/settlements"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type settlementItemRequest struct {
	Description string          `json:"description" validate:"required,min=1"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type settlementCreateRequest struct {
	Title          string                  `json:"title" validate:"required,min=1"`
	Currency       string                  `json:"currency,omitempty" validate:"omitempty,len=3"`
	TaxRatePercent decimal.Decimal         `json:"tax_rate_percent"`
	Items          []settlementItemRequest `json:"items" validate:"required,min=1,dive"`
}

type settlementUpdateRequest struct {
	Title          *string                 `json:"title,omitempty" validate:"omitempty,min=1"`
	Currency       *string                 `json:"currency,omitempty" validate:"omitempty,len=3"`
	TaxRatePercent *decimal.Decimal        `json:"tax_rate_percent,omitempty"`
	Items          []settlementItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type settlementRejectRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

func settlementItems(items []settlementItemRequest) []settlements.LineItemInput {
	out := make([]settlements.LineItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, settlements.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

// SettlementCreate opens a draft expense claim for the authenticated user.
func SettlementCreate(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		claimant, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settlementCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateSettlement(r.Context(), claimant, settlements.CreateSettlementInput{
			Title:          body.Title,
			Currency:       body.Currency,
			TaxRatePercent: body.TaxRatePercent,
			Items:          settlementItems(body.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// SettlementUpdate edits a claim while it is still a draft.
func SettlementUpdate(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settlementUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := settlements.UpdateSettlementInput{
			Title:          body.Title,
			Currency:       body.Currency,
			TaxRatePercent: body.TaxRatePercent,
		}
		if body.Items != nil {
			input.Items = settlementItems(body.Items)
		}

		row, err := svc.UpdateSettlement(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementSubmit moves a draft claim into review.
func SettlementSubmit(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.SubmitSettlement(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementApprove accepts a submitted claim.
func SettlementApprove(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		approver, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.ApproveSettlement(r.Context(), approver, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementReject declines a submitted claim with a reason.
func SettlementReject(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settlementRejectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.RejectSettlement(r.Context(), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementMarkPaid settles an approved claim.
func SettlementMarkPaid(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.MarkPaid(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementDetail returns one claim by id.
func SettlementDetail(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "settlementID"), "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetSettlement(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// SettlementList returns paginated claims with optional filters.
func SettlementList(svc settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := settlements.ListParams{
			Status: r.URL.Query().Get("status"),
			Params: page,
		}
		if claimant, err := validators.ParseQueryUUID(r, "claimant_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if claimant != uuid.Nil {
			params.ClaimantID = &claimant
		}

		result, err := svc.ListSettlements(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
