package projects

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

type stubProjectRepo struct {
	created    *models.Project
	createErr  error
	updated    *models.Project
	updateErr  error
	findResult *models.Project
	findErr    error
	listRows   []models.Project
	listErr    error
	lastQuery  listQuery
}

func (s *stubProjectRepo) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = project
	return project, nil
}

func (s *stubProjectRepo) Update(ctx context.Context, project *models.Project) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = project
	return nil
}

func (s *stubProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubProjectRepo) List(ctx context.Context, opts listQuery) ([]models.Project, error) {
	s.lastQuery = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

func newProjectService(t *testing.T, repo *stubProjectRepo) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateProjectDefaultsToPlanning(t *testing.T) {
	repo := &stubProjectRepo{}
	svc := newProjectService(t, repo)

	created, err := svc.CreateProject(context.Background(), uuid.New(), CreateProjectInput{
		Name: "  Q3 Rollout ",
		Tags: []string{"Infra", " infra ", "", "billing"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.ProjectStatusPlanning {
		t.Fatalf("unexpected status %s", created.Status)
	}
	if created.Name != "Q3 Rollout" {
		t.Fatalf("unexpected name %q", created.Name)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "infra" || created.Tags[1] != "billing" {
		t.Fatalf("unexpected tags %v", created.Tags)
	}
}

func TestCreateProjectRejectsBadDates(t *testing.T) {
	repo := &stubProjectRepo{}
	svc := newProjectService(t, repo)

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.CreateProject(context.Background(), uuid.New(), CreateProjectInput{
		Name:      "Backwards",
		StartDate: &start,
		EndDate:   &end,
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateProjectRejectsArchived(t *testing.T) {
	repo := &stubProjectRepo{findResult: &models.Project{
		ID:     uuid.New(),
		Name:   "Old",
		Status: enums.ProjectStatusArchived,
	}}
	svc := newProjectService(t, repo)

	name := "New"
	_, err := svc.UpdateProject(context.Background(), uuid.New(), UpdateProjectInput{Name: &name})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateProjectRejectsArchiveViaStatus(t *testing.T) {
	repo := &stubProjectRepo{findResult: &models.Project{
		ID:     uuid.New(),
		Name:   "Live",
		Status: enums.ProjectStatusActive,
	}}
	svc := newProjectService(t, repo)

	status := "archived"
	_, err := svc.UpdateProject(context.Background(), uuid.New(), UpdateProjectInput{Status: &status})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestArchiveProjectStampsTimestamp(t *testing.T) {
	repo := &stubProjectRepo{findResult: &models.Project{
		ID:     uuid.New(),
		Name:   "Done",
		Status: enums.ProjectStatusCompleted,
	}}
	svc := newProjectService(t, repo)

	archived, err := svc.ArchiveProject(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archived.Status != enums.ProjectStatusArchived {
		t.Fatalf("unexpected status %s", archived.Status)
	}
	if archived.ArchivedAt == nil {
		t.Fatalf("expected archived_at to be set")
	}
}

func TestArchiveProjectTwiceConflicts(t *testing.T) {
	repo := &stubProjectRepo{findResult: &models.Project{
		ID:     uuid.New(),
		Status: enums.ProjectStatusArchived,
	}}
	svc := newProjectService(t, repo)

	_, err := svc.ArchiveProject(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListProjectsFiltersByStatus(t *testing.T) {
	repo := &stubProjectRepo{listRows: []models.Project{
		{ID: uuid.New(), Status: enums.ProjectStatusActive, CreatedAt: time.Now()},
	}}
	svc := newProjectService(t, repo)

	result, err := svc.ListProjects(context.Background(), ListParams{
		Status: "active",
		Params: pagination.Params{Limit: 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if repo.lastQuery.status == nil || *repo.lastQuery.status != enums.ProjectStatusActive {
		t.Fatalf("expected status filter to reach repo")
	}
}

func TestListProjectsRejectsUnknownStatus(t *testing.T) {
	repo := &stubProjectRepo{}
	svc := newProjectService(t, repo)

	_, err := svc.ListProjects(context.Background(), ListParams{Status: "bogus"})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
