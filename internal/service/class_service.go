package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/validation"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, semesterID, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type moduleLister interface {
	ListByClasses(ctx context.Context, classIDs []string) ([]models.Module, error)
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	semesters semesterReader
	modules   moduleLister
	reports   reportInvalidator
	metrics   *MetricsService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, semesters semesterReader, modules moduleLister, reports reportInvalidator, metrics *MetricsService, validate *validation.Validator, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, semesters: semesters, modules: modules, reports: reports, metrics: metrics, validator: validate, logger: logger}
}

// Get returns a class with its modules and the class rollup.
func (s *ClassService) Get(ctx context.Context, id string) (*dto.ClassReport, error) {
	start := time.Now()
	class, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	modules, err := s.modules.ListByClasses(ctx, []string{class.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class modules")
	}
	class.Modules = modules
	report := dto.NewClassReport(*class)
	s.metrics.ObserveRecompute("class", time.Since(start))
	return &report, nil
}

// Create adds a class to a semester.
func (s *ClassService) Create(ctx context.Context, semesterID string, req NameRequest) (*models.Class, error) {
	name, err := validateName(s.validator, req, "class")
	if err != nil {
		return nil, err
	}

	if _, err := s.semesters.FindByID(ctx, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	if err := s.ensureUniqueName(ctx, semesterID, name, ""); err != nil {
		return nil, err
	}

	class := &models.Class{SemesterID: semesterID, Name: name, Modules: []models.Module{}}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidate(ctx, semesterID)
	return class, nil
}

// Rename changes the class name.
func (s *ClassService) Rename(ctx context.Context, id string, req NameRequest) (*models.Class, error) {
	name, err := validateName(s.validator, req, "class")
	if err != nil {
		return nil, err
	}

	class, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, class.SemesterID, name, id); err != nil {
		return nil, err
	}

	class.Name = name
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx, class.SemesterID)
	return class, nil
}

// Delete removes a class and its modules.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	class, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFound("class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx, class.SemesterID)
	return nil
}

func (s *ClassService) find(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *ClassService) ensureUniqueName(ctx context.Context, semesterID, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, semesterID, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "class name already exists in this semester")
	}
	return nil
}

func (s *ClassService) invalidate(ctx context.Context, semesterID string) {
	if s.reports != nil {
		s.reports.Invalidate(ctx, semesterID)
	}
}
