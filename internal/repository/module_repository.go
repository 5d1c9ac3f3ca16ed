package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// ModuleRepository handles module and grade persistence.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository creates a new module repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByClasses returns the modules of the given classes, oldest first.
func (r *ModuleRepository) ListByClasses(ctx context.Context, classIDs []string) ([]models.Module, error) {
	if len(classIDs) == 0 {
		return []models.Module{}, nil
	}
	query, args, err := sqlx.In("SELECT "+moduleColumns+" FROM modules WHERE class_id IN (?) ORDER BY created_at, id", classIDs)
	if err != nil {
		return nil, fmt.Errorf("build module query: %w", err)
	}
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindByID returns a module by ID.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.Module, error) {
	query := r.db.Rebind("SELECT " + moduleColumns + " FROM modules WHERE id = ?")
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// Create persists a module. Absent scores are stored as NULL.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.UpdatedAt = now

	const query = `INSERT INTO modules (id, class_id, name, assignment_grade, exam_grade, coefficient, created_at, updated_at)
        VALUES (:id, :class_id, :name, :assignment_grade, :exam_grade, :coefficient, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Update writes the module name, both scores and the coefficient.
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET name = :name, assignment_grade = :assignment_grade, exam_grade = :exam_grade,
        coefficient = :coefficient, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Delete removes a module.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM modules WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return expectAffected(res)
}
