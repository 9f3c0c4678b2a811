package milestones

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
)

type milestonesRepository interface {
	Create(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error)
	Update(ctx context.Context, milestone *models.Milestone) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
}

type projectsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Service exposes milestone lifecycle semantics.
type Service interface {
	CreateMilestone(ctx context.Context, input CreateMilestoneInput) (*models.Milestone, error)
	UpdateMilestone(ctx context.Context, id uuid.UUID, input UpdateMilestoneInput) (*models.Milestone, error)
	MarkReached(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListMilestones(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
}

type service struct {
	repo        milestonesRepository
	projectRepo projectsRepository
	now         func() time.Time
}

// CreateMilestoneInput holds the fields required to add a milestone.
type CreateMilestoneInput struct {
	ProjectID   uuid.UUID
	Name        string
	Description *string
	TargetDate  time.Time
}

// UpdateMilestoneInput carries optional field updates.
type UpdateMilestoneInput struct {
	Name        *string
	Description *string
	TargetDate  *time.Time
	Status      *string
}

// NewService builds a milestone service backed by the provided repositories.
func NewService(repo milestonesRepository, projectRepo projectsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("milestone repository required")
	}
	if projectRepo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	return &service{repo: repo, projectRepo: projectRepo, now: time.Now}, nil
}

func (s *service) CreateMilestone(ctx context.Context, input CreateMilestoneInput) (*models.Milestone, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.TargetDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target_date is required")
	}

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup project")
	}
	if project.Status == enums.ProjectStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived projects cannot receive milestones")
	}

	row := &models.Milestone{
		ProjectID:   input.ProjectID,
		Name:        name,
		Description: input.Description,
		TargetDate:  input.TargetDate,
		Status:      enums.MilestoneStatusUpcoming,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create milestone")
	}
	return created, nil
}

func (s *service) UpdateMilestone(ctx context.Context, id uuid.UUID, input UpdateMilestoneInput) (*models.Milestone, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup milestone")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
	}
	if input.Description != nil {
		row.Description = input.Description
	}
	if input.TargetDate != nil {
		if input.TargetDate.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target_date cannot be zero")
		}
		row.TargetDate = *input.TargetDate
	}
	if input.Status != nil {
		status, err := enums.ParseMilestoneStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		if status == enums.MilestoneStatusReached && row.Status != enums.MilestoneStatusReached {
			reachedAt := s.now()
			row.ReachedAt = &reachedAt
		}
		if status != enums.MilestoneStatusReached {
			row.ReachedAt = nil
		}
		row.Status = status
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update milestone")
	}
	return row, nil
}

func (s *service) MarkReached(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup milestone")
	}
	if row.Status == enums.MilestoneStatusReached {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "milestone already reached")
	}

	reachedAt := s.now()
	row.Status = enums.MilestoneStatusReached
	row.ReachedAt = &reachedAt
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark milestone reached")
	}
	return row, nil
}

func (s *service) ListMilestones(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	rows, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list milestones")
	}
	return rows, nil
}
