package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/api/responses"
	"github.com/calderhq/opsdesk-backend/api/validators"
	"github.com/calderhq/opsdesk-backend/internal/invoices"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type generateRequest struct {
	AsOf *string `json:"as_of,omitempty"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func parseAsOf(raw *string) (time.Time, error) {
	if raw == nil {
		return time.Time{}, nil
	}
	return parseDate(*raw, "as_of")
}

// InvoicePreview computes the next billable period without persisting anything.
func InvoicePreview(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		agreementID, err := validators.ParsePathUUID(chi.URLParam(r, "agreementID"), "agreementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asOf, err := parseAsOf(body.AsOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.PreviewInvoice(r.Context(), agreementID, asOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, preview)
	}
}

// InvoiceGenerate persists the next invoice for an outgoing agreement.
func InvoiceGenerate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agreementID, err := validators.ParsePathUUID(chi.URLParam(r, "agreementID"), "agreementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asOf, err := parseAsOf(body.AsOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GenerateInvoice(r.Context(), invoices.GenerateInput{
			AgreementID: agreementID,
			AsOf:        asOf,
			ActorID:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// InvoiceStatusUpdate moves an invoice along its lifecycle.
func InvoiceStatusUpdate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceID"), "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateStatus(r.Context(), id, body.Status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// InvoiceDetail returns one invoice with its snapshot lines.
func InvoiceDetail(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceID"), "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetInvoice(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// InvoiceList returns paginated invoices with optional filters.
func InvoiceList(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := invoices.ListParams{
			Status: r.URL.Query().Get("status"),
			Params: page,
		}
		if stakeholder, err := validators.ParseQueryUUID(r, "stakeholder_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if stakeholder != uuid.Nil {
			params.StakeholderID = &stakeholder
		}
		if agreement, err := validators.ParseQueryUUID(r, "agreement_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if agreement != uuid.Nil {
			params.AgreementID = &agreement
		}

		result, err := svc.ListInvoices(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
