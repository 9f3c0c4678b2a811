package milestones

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
)

type stubMilestoneRepo struct {
	created    *models.Milestone
	createErr  error
	updated    *models.Milestone
	updateErr  error
	findResult *models.Milestone
	findErr    error
	listRows   []models.Milestone
	listErr    error
}

func (s *stubMilestoneRepo) Create(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = milestone
	return milestone, nil
}

func (s *stubMilestoneRepo) Update(ctx context.Context, milestone *models.Milestone) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = milestone
	return nil
}

func (s *stubMilestoneRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubMilestoneRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

type stubMilestoneProjectRepo struct {
	project *models.Project
	err     error
}

func (s *stubMilestoneProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.project == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.project, nil
}

func newMilestoneService(t *testing.T, repo *stubMilestoneRepo, projects *stubMilestoneProjectRepo) Service {
	t.Helper()
	svc, err := NewService(repo, projects)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateMilestoneDefaultsUpcoming(t *testing.T) {
	repo := &stubMilestoneRepo{}
	projects := &stubMilestoneProjectRepo{project: &models.Project{ID: uuid.New(), Status: enums.ProjectStatusActive}}
	svc := newMilestoneService(t, repo, projects)

	created, err := svc.CreateMilestone(context.Background(), CreateMilestoneInput{
		ProjectID:  projects.project.ID,
		Name:       " Beta launch ",
		TargetDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != enums.MilestoneStatusUpcoming {
		t.Fatalf("unexpected status %s", created.Status)
	}
	if created.Name != "Beta launch" {
		t.Fatalf("unexpected name %q", created.Name)
	}
}

func TestCreateMilestoneRequiresTargetDate(t *testing.T) {
	repo := &stubMilestoneRepo{}
	projects := &stubMilestoneProjectRepo{project: &models.Project{ID: uuid.New(), Status: enums.ProjectStatusActive}}
	svc := newMilestoneService(t, repo, projects)

	_, err := svc.CreateMilestone(context.Background(), CreateMilestoneInput{
		ProjectID: projects.project.ID,
		Name:      "Beta",
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkReachedStampsTimestamp(t *testing.T) {
	repo := &stubMilestoneRepo{findResult: &models.Milestone{
		ID:     uuid.New(),
		Name:   "Beta",
		Status: enums.MilestoneStatusUpcoming,
	}}
	projects := &stubMilestoneProjectRepo{}
	svc := newMilestoneService(t, repo, projects)

	reached, err := svc.MarkReached(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reached.Status != enums.MilestoneStatusReached {
		t.Fatalf("unexpected status %s", reached.Status)
	}
	if reached.ReachedAt == nil {
		t.Fatalf("expected reached_at stamped")
	}
}

func TestMarkReachedTwiceConflicts(t *testing.T) {
	repo := &stubMilestoneRepo{findResult: &models.Milestone{
		ID:     uuid.New(),
		Status: enums.MilestoneStatusReached,
	}}
	projects := &stubMilestoneProjectRepo{}
	svc := newMilestoneService(t, repo, projects)

	_, err := svc.MarkReached(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateMilestoneToMissedClearsReachedAt(t *testing.T) {
	reachedAt := time.Now()
	repo := &stubMilestoneRepo{findResult: &models.Milestone{
		ID:        uuid.New(),
		Name:      "Beta",
		Status:    enums.MilestoneStatusReached,
		ReachedAt: &reachedAt,
	}}
	projects := &stubMilestoneProjectRepo{}
	svc := newMilestoneService(t, repo, projects)

	status := "missed"
	updated, err := svc.UpdateMilestone(context.Background(), uuid.New(), UpdateMilestoneInput{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.MilestoneStatusMissed {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if updated.ReachedAt != nil {
		t.Fatalf("expected reached_at cleared")
	}
}
