package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderhq/opsdesk-backend/pkg/db/models"
	"github.com/calderhq/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/calderhq/opsdesk-backend/pkg/errors"
	"github.com/calderhq/opsdesk-backend/pkg/pagination"
)

type stubTaskRepo struct {
	created    *models.Task
	createErr  error
	updated    *models.Task
	updateErr  error
	findResult *models.Task
	findErr    error
	deleteErr  error
	deletedID  uuid.UUID
	listRows   []models.Task
	listErr    error
	lastQuery  listQuery
}

func (s *stubTaskRepo) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = task
	return task, nil
}

func (s *stubTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = task
	return nil
}

func (s *stubTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	return s.deleteErr
}

func (s *stubTaskRepo) List(ctx context.Context, opts listQuery) ([]models.Task, error) {
	s.lastQuery = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

type stubTaskProjectRepo struct {
	project *models.Project
	err     error
}

func (s *stubTaskProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.project == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.project, nil
}

func newTaskService(t *testing.T, repo *stubTaskRepo, projects *stubTaskProjectRepo) Service {
	t.Helper()
	svc, err := NewService(repo, projects)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateTaskDefaults(t *testing.T) {
	repo := &stubTaskRepo{}
	projects := &stubTaskProjectRepo{project: &models.Project{ID: uuid.New(), Status: enums.ProjectStatusActive}}
	svc := newTaskService(t, repo, projects)

	created, err := svc.CreateTask(context.Background(), CreateTaskInput{
		ProjectID: projects.project.ID,
		Title:     " Ship billing worker ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.TaskStatusTodo {
		t.Fatalf("unexpected status %s", created.Status)
	}
	if created.Priority != enums.TaskPriorityMedium {
		t.Fatalf("unexpected priority %s", created.Priority)
	}
	if created.Title != "Ship billing worker" {
		t.Fatalf("unexpected title %q", created.Title)
	}
}

func TestCreateTaskProjectNotFound(t *testing.T) {
	repo := &stubTaskRepo{}
	projects := &stubTaskProjectRepo{}
	svc := newTaskService(t, repo, projects)

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{ProjectID: uuid.New(), Title: "x"})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateTaskArchivedProject(t *testing.T) {
	repo := &stubTaskRepo{}
	projects := &stubTaskProjectRepo{project: &models.Project{ID: uuid.New(), Status: enums.ProjectStatusArchived}}
	svc := newTaskService(t, repo, projects)

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{ProjectID: projects.project.ID, Title: "x"})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateTaskStampsCompletedAt(t *testing.T) {
	repo := &stubTaskRepo{findResult: &models.Task{
		ID:     uuid.New(),
		Title:  "Review",
		Status: enums.TaskStatusInProgress,
	}}
	projects := &stubTaskProjectRepo{}
	svc := newTaskService(t, repo, projects)

	status := "done"
	updated, err := svc.UpdateTask(context.Background(), uuid.New(), UpdateTaskInput{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.TaskStatusDone {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Fatalf("expected completed_at to be stamped")
	}
}

func TestUpdateTaskReopeningClearsCompletedAt(t *testing.T) {
	completed := time.Now()
	repo := &stubTaskRepo{findResult: &models.Task{
		ID:          uuid.New(),
		Title:       "Review",
		Status:      enums.TaskStatusDone,
		CompletedAt: &completed,
	}}
	projects := &stubTaskProjectRepo{}
	svc := newTaskService(t, repo, projects)

	status := "in_progress"
	updated, err := svc.UpdateTask(context.Background(), uuid.New(), UpdateTaskInput{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared")
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	repo := &stubTaskRepo{}
	projects := &stubTaskProjectRepo{}
	svc := newTaskService(t, repo, projects)

	err := svc.DeleteTask(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTasksAppliesFilters(t *testing.T) {
	projectID := uuid.New()
	assigneeID := uuid.New()
	repo := &stubTaskRepo{listRows: []models.Task{
		{ID: uuid.New(), ProjectID: projectID, Status: enums.TaskStatusTodo, CreatedAt: time.Now()},
	}}
	projects := &stubTaskProjectRepo{}
	svc := newTaskService(t, repo, projects)

	result, err := svc.ListTasks(context.Background(), ListParams{
		ProjectID:  &projectID,
		Status:     "todo",
		AssigneeID: &assigneeID,
		Params:     pagination.Params{Limit: 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if repo.lastQuery.projectID == nil || *repo.lastQuery.projectID != projectID {
		t.Fatalf("expected project filter")
	}
	if repo.lastQuery.status == nil || *repo.lastQuery.status != enums.TaskStatusTodo {
		t.Fatalf("expected status filter")
	}
	if repo.lastQuery.assigneeID == nil || *repo.lastQuery.assigneeID != assigneeID {
		t.Fatalf("expected assignee filter")
	}
}
