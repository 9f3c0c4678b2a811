package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calderhq/opsdesk-backend/api/responses"
	"github.com/calderhq/opsdesk-backend/api/validators"
	"github.com/calderhq/opsdesk-backend/internal/stakeholders"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type stakeholderCreateRequest struct {
	Name            string  `json:"name" validate:"required,min=1"`
	Email           string  `json:"email" validate:"required,email"`
	BillingAddress  *string `json:"billing_address,omitempty"`
	DefaultCurrency string  `json:"default_currency,omitempty" validate:"omitempty,len=3"`
	Notes           *string `json:"notes,omitempty"`
}

type stakeholderUpdateRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	BillingAddress  *string `json:"billing_address,omitempty"`
	DefaultCurrency *string `json:"default_currency,omitempty" validate:"omitempty,len=3"`
	Notes           *string `json:"notes,omitempty"`
}

// StakeholderCreate registers a new counterparty.
func StakeholderCreate(svc stakeholders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stakeholder service unavailable"))
			return
		}

		var body stakeholderCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateStakeholder(r.Context(), stakeholders.CreateStakeholderInput{
			Name:            body.Name,
			Email:           body.Email,
			BillingAddress:  body.BillingAddress,
			DefaultCurrency: body.DefaultCurrency,
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// StakeholderUpdate adjusts the mutable fields of a counterparty.
func StakeholderUpdate(svc stakeholders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stakeholder service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "stakeholderID"), "stakeholderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stakeholderUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateStakeholder(r.Context(), id, stakeholders.UpdateStakeholderInput{
			Name:            body.Name,
			Email:           body.Email,
			BillingAddress:  body.BillingAddress,
			DefaultCurrency: body.DefaultCurrency,
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// StakeholderDetail returns one counterparty by id.
func StakeholderDetail(svc stakeholders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stakeholder service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "stakeholderID"), "stakeholderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetStakeholder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// StakeholderList returns paginated counterparties.
func StakeholderList(svc stakeholders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stakeholder service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListStakeholders(r.Context(), stakeholders.ListParams{Params: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
