package projects

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
	pkgpagination "github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type projectsRepository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, opts listQuery) ([]models.Project, error)
}

// Service exposes project lifecycle semantics.
type Service interface {
	CreateProject(ctx context.Context, ownerID uuid.UUID, input CreateProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, params ListParams) (*ListResult, error)
	ArchiveProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

type service struct {
	repo projectsRepository
	now  func() time.Time
}

// CreateProjectInput holds the fields required to open a project.
type CreateProjectInput struct {
	Name        string
	Description *string
	Tags        []string
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProjectInput carries optional field updates.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *string
	Tags        []string
	StartDate   *time.Time
	EndDate     *time.Time
}

// NewService builds a project service backed by the provided repository.
func NewService(repo projectsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) CreateProject(ctx context.Context, ownerID uuid.UUID, input CreateProjectInput) (*models.Project, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	row := &models.Project{
		Name:        name,
		Description: input.Description,
		Status:      enums.ProjectStatusPlanning,
		OwnerID:     ownerID,
		Tags:        normalizeTags(input.Tags),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
	}
	return created, nil
}

func (s *service) UpdateProject(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*models.Project, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup project")
	}
	if row.Status == enums.ProjectStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived projects cannot be updated")
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
	if input.Status != nil {
		status, err := enums.ParseProjectStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		if status == enums.ProjectStatusArchived {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "use archive to archive a project")
		}
		row.Status = status
	}
	if input.Tags != nil {
		row.Tags = normalizeTags(input.Tags)
	}
	if input.StartDate != nil {
		row.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		row.EndDate = input.EndDate
	}
	if err := validateDateRange(row.StartDate, row.EndDate); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update project")
	}
	return row, nil
}

func (s *service) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup project")
	}
	return row, nil
}

func (s *service) ListProjects(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		ownerID: params.OwnerID,
		limit:   pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseProjectStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.status = &status
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}

func (s *service) ArchiveProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup project")
	}
	if row.Status == enums.ProjectStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project already archived")
	}

	archivedAt := s.now()
	row.Status = enums.ProjectStatusArchived
	row.ArchivedAt = &archivedAt
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive project")
	}
	return row, nil
}

func validateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot precede start_date")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		out = append(out, lowered)
	}
	return out
}
