package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class record by ID without its modules.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := r.db.Rebind("SELECT " + classColumns + " FROM classes WHERE id = ?")
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByName checks if the semester already holds a class with the same name.
func (r *ClassRepository) ExistsByName(ctx context.Context, semesterID, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classes WHERE semester_id = ? AND LOWER(name) = LOWER(?)"
	args := []interface{}{semesterID, name}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

// Create persists a class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, semester_id, name, created_at, updated_at) VALUES (:id, :semester_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies a class record.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class and its modules.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM modules WHERE class_id = ?"), id); err != nil {
		return fmt.Errorf("delete class modules: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM classes WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}
