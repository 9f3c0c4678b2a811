package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calderhq/opsdesk-backend/api/responses"
	"github.com/calderhq/opsdesk-backend/api/validators"
	"github.com/calderhq/opsdesk-backend/internal/milestones"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
)

type milestoneCreateRequest struct {
	ProjectID   uuid.UUID `json:"project_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1"`
	Description *string   `json:"description,omitempty"`
	TargetDate  string    `json:"target_date" validate:"required"`
}

type milestoneUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// MilestoneCreate adds a milestone to a project.
func MilestoneCreate(svc milestones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "milestone service unavailable"))
			return
		}

		var body milestoneCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := parseDate(body.TargetDate, "target_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateMilestone(r.Context(), milestones.CreateMilestoneInput{
			ProjectID:   body.ProjectID,
			Name:        body.Name,
			Description: body.Description,
			TargetDate:  target,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// MilestoneUpdate adjusts the mutable fields of a milestone.
func MilestoneUpdate(svc milestones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "milestone service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "milestoneID"), "milestoneID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body milestoneUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := parseOptionalDate(body.TargetDate, "target_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.UpdateMilestone(r.Context(), id, milestones.UpdateMilestoneInput{
			Name:        body.Name,
			Description: body.Description,
			TargetDate:  target,
			Status:      body.Status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// MilestoneReach marks a milestone as reached.
func MilestoneReach(svc milestones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "milestone service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "milestoneID"), "milestoneID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.MarkReached(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// MilestoneList returns the milestones of one project ordered by target date.
func MilestoneList(svc milestones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "milestone service unavailable"))
			return
		}

		projectID, err := validators.ParsePathUUID(chi.URLParam(r, "projectID"), "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMilestones(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
