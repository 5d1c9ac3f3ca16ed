package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/grading"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/validation"
)

type moduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateModuleRequest adds a module. Coefficient may be a number, a numeric string or omitted.
type CreateModuleRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Coefficient json.RawMessage `json:"coefficient,omitempty" swaggertype:"number"`
}

// UpdateGradesRequest replaces both scores. A null score clears it.
type UpdateGradesRequest struct {
	AssignmentGrade null.Float64 `json:"assignment_grade" swaggertype:"number"`
	ExamGrade       null.Float64 `json:"exam_grade" swaggertype:"number"`
}

// UpdateCoefficientRequest replaces the module weight.
type UpdateCoefficientRequest struct {
	Coefficient json.RawMessage `json:"coefficient" swaggertype:"number"`
}

// ModuleService coordinates module and score mutations.
type ModuleService struct {
	repo      moduleRepository
	classes   classReader
	reports   reportInvalidator
	validator *validation.Validator
	logger    *zap.Logger
}

// NewModuleService constructs ModuleService.
func NewModuleService(repo moduleRepository, classes classReader, reports reportInvalidator, validate *validation.Validator, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{repo: repo, classes: classes, reports: reports, validator: validate, logger: logger}
}

// Create adds a module to a class. Both scores start absent.
func (s *ModuleService) Create(ctx context.Context, classID string, req CreateModuleRequest) (*models.Module, error) {
	name, err := validateName(s.validator, NameRequest{Name: req.Name}, "module")
	if err != nil {
		return nil, err
	}
	class, err := s.class(ctx, classID)
	if err != nil {
		return nil, err
	}

	module := &models.Module{
		ClassID:     class.ID,
		Name:        name,
		Coefficient: grading.CoefficientFromJSON(req.Coefficient),
	}
	if err := s.repo.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	s.invalidate(ctx, class.SemesterID)
	return module, nil
}

// Rename changes the module name.
func (s *ModuleService) Rename(ctx context.Context, id string, req NameRequest) (*models.Module, error) {
	name, err := validateName(s.validator, req, "module")
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "failed to update module", func(m *models.Module) {
		m.Name = name
	})
}

// UpdateGrades stores both scores as entered. Absent stays distinct from zero.
func (s *ModuleService) UpdateGrades(ctx context.Context, id string, req UpdateGradesRequest) (*models.Module, error) {
	return s.mutate(ctx, id, "failed to update grades", func(m *models.Module) {
		m.AssignmentGrade = req.AssignmentGrade
		m.ExamGrade = req.ExamGrade
	})
}

// UpdateCoefficient replaces the weight, falling back to the default for unusable input.
func (s *ModuleService) UpdateCoefficient(ctx context.Context, id string, req UpdateCoefficientRequest) (*models.Module, error) {
	coefficient := grading.CoefficientFromJSON(req.Coefficient)
	return s.mutate(ctx, id, "failed to update coefficient", func(m *models.Module) {
		m.Coefficient = coefficient
	})
}

// Delete removes a module.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	module, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	class, err := s.class(ctx, module.ClassID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFound("module")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}
	s.invalidate(ctx, class.SemesterID)
	return nil
}

func (s *ModuleService) mutate(ctx context.Context, id, failure string, apply func(*models.Module)) (*models.Module, error) {
	module, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := s.class(ctx, module.ClassID)
	if err != nil {
		return nil, err
	}

	apply(module)
	module.Coefficient = grading.NormalizeCoefficient(module.Coefficient)
	if err := s.repo.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
	}
	s.invalidate(ctx, class.SemesterID)
	return module, nil
}

func (s *ModuleService) find(ctx context.Context, id string) (*models.Module, error) {
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("module")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return module, nil
}

func (s *ModuleService) class(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *ModuleService) invalidate(ctx context.Context, semesterID string) {
	if s.reports != nil {
		s.reports.Invalidate(ctx, semesterID)
	}
}
