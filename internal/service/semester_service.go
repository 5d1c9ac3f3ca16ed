package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/validation"
)

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	LoadTree(ctx context.Context, id string) (*models.Semester, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Delete(ctx context.Context, id string) error
}

// reportInvalidator is told about every mutation so cached and streamed reports follow the data.
type reportInvalidator interface {
	Invalidate(ctx context.Context, semesterID string)
}

// NameRequest carries the display name of a semester, class or module.
type NameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// SemesterService coordinates semester operations.
type SemesterService struct {
	repo      semesterRepository
	reports   reportInvalidator
	validator *validation.Validator
	logger    *zap.Logger
}

// NewSemesterService constructs SemesterService.
func NewSemesterService(repo semesterRepository, reports reportInvalidator, validate *validation.Validator, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, reports: reports, validator: validate, logger: logger}
}

// List returns semesters with pagination metadata.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	if semesters == nil {
		semesters = []models.Semester{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return semesters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the semester with its classes and modules.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.LoadTree(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create adds a new, empty semester.
func (s *SemesterService) Create(ctx context.Context, req NameRequest) (*models.Semester, error) {
	name, err := s.validName(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "semester name already exists")
	}

	semester := &models.Semester{Name: name, Classes: []models.Class{}}
	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	s.logger.Info("semester created", zap.String("semester_id", semester.ID))
	return semester, nil
}

// Rename changes the semester name.
func (s *SemesterService) Rename(ctx context.Context, id string, req NameRequest) (*models.Semester, error) {
	name, err := s.validName(req)
	if err != nil {
		return nil, err
	}

	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "semester name already exists")
	}

	semester.Name = name
	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	s.invalidate(ctx, id)
	return semester, nil
}

// Delete removes the semester with all of its classes and modules.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFound("semester")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.logger.Info("semester deleted", zap.String("semester_id", id))
	s.invalidate(ctx, id)
	return nil
}

func (s *SemesterService) validName(req NameRequest) (string, error) {
	return validateName(s.validator, req, "semester")
}

func (s *SemesterService) invalidate(ctx context.Context, semesterID string) {
	if s.reports != nil {
		s.reports.Invalidate(ctx, semesterID)
	}
}

// validateName trims the requested name and rejects blank values.
func validateName(validate *validation.Validator, req NameRequest, resource string) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		appErr := appErrors.FromError(err)
		return "", appErrors.Wrap(err, appErr.Code, appErr.Status, "invalid "+resource+": "+appErr.Message)
	}
	return req.Name, nil
}
