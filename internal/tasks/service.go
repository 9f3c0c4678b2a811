package tasks

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

type tasksRepository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts listQuery) ([]models.Task, error)
}

type projectsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Service exposes task lifecycle semantics.
type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput) (*models.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo        tasksRepository
	projectRepo projectsRepository
	now         func() time.Time
}

// CreateTaskInput holds the fields required to open a task.
type CreateTaskInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description *string
	Priority    string
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// UpdateTaskInput carries optional field updates.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// NewService builds a task service backed by the provided repositories.
func NewService(repo tasksRepository, projectRepo projectsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	if projectRepo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	return &service{repo: repo, projectRepo: projectRepo, now: time.Now}, nil
}

func (s *service) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project_id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	priority := enums.TaskPriorityMedium
	if input.Priority != "" {
		parsed, err := enums.ParseTaskPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		priority = parsed
	}

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup project")
	}
	if project.Status == enums.ProjectStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived projects cannot receive tasks")
	}

	row := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		Status:      enums.TaskStatusTodo,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
	}
	return created, nil
}

func (s *service) UpdateTask(ctx context.Context, id uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup task")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		row.Title = title
	}
	if input.Description != nil {
		row.Description = input.Description
	}
	if input.Priority != nil {
		priority, err := enums.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		row.Priority = priority
	}
	if input.Status != nil {
		status, err := enums.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		if status == enums.TaskStatusDone && row.Status != enums.TaskStatusDone {
			completedAt := s.now()
			row.CompletedAt = &completedAt
		}
		if status != enums.TaskStatusDone {
			row.CompletedAt = nil
		}
		row.Status = status
	}
	if input.AssigneeID != nil {
		row.AssigneeID = input.AssigneeID
	}
	if input.DueDate != nil {
		row.DueDate = input.DueDate
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update task")
	}
	return row, nil
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup task")
	}
	return row, nil
}

func (s *service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "task id is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup task")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete task")
	}
	return nil
}

func (s *service) ListTasks(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		projectID:  params.ProjectID,
		assigneeID: params.AssigneeID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseTaskStatus(params.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
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
