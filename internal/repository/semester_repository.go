package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradebook-api/internal/models"
)

const (
	semesterColumns = "id, name, created_at, updated_at"
	classColumns    = "id, semester_id, name, created_at, updated_at"
	moduleColumns   = "id, class_id, name, assignment_grade, exam_grade, coefficient, created_at, updated_at"
)

// SemesterRepository manages persistence for semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a new semester repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns semesters matching filter criteria.
func (r *SemesterRepository) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	base := "FROM semesters WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += " AND LOWER(name) LIKE ?"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", semesterColumns, base, sortBy, order, size, offset)
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+base), args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}
	return semesters, total, nil
}

// FindByID returns a semester record without its classes.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := r.db.Rebind("SELECT " + semesterColumns + " FROM semesters WHERE id = ?")
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// LoadTree reads a semester with its classes and modules inside a single transaction so the
// caller always sees one consistent snapshot.
func (r *SemesterRepository) LoadTree(ctx context.Context, id string) (*models.Semester, error) {
	var opts *sql.TxOptions
	if r.db.DriverName() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin semester snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var semester models.Semester
	if err := tx.GetContext(ctx, &semester, tx.Rebind("SELECT "+semesterColumns+" FROM semesters WHERE id = ?"), id); err != nil {
		return nil, err
	}

	var classes []models.Class
	classQuery := tx.Rebind("SELECT " + classColumns + " FROM classes WHERE semester_id = ? ORDER BY created_at, id")
	if err := tx.SelectContext(ctx, &classes, classQuery, id); err != nil {
		return nil, fmt.Errorf("list semester classes: %w", err)
	}

	var modules []models.Module
	moduleQuery := tx.Rebind("SELECT " + moduleColumns + " FROM modules WHERE class_id IN (SELECT id FROM classes WHERE semester_id = ?) ORDER BY created_at, id")
	if err := tx.SelectContext(ctx, &modules, moduleQuery, id); err != nil {
		return nil, fmt.Errorf("list semester modules: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit semester snapshot: %w", err)
	}

	byClass := make(map[string][]models.Module, len(classes))
	for _, module := range modules {
		byClass[module.ClassID] = append(byClass[module.ClassID], module)
	}
	for i := range classes {
		classes[i].Modules = byClass[classes[i].ID]
		if classes[i].Modules == nil {
			classes[i].Modules = []models.Module{}
		}
	}
	if classes == nil {
		classes = []models.Class{}
	}
	semester.Classes = classes
	return &semester, nil
}

// ExistsByName checks if a semester with the same name already exists.
func (r *SemesterRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM semesters WHERE LOWER(name) = LOWER(?)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester name: %w", err)
	}
	return true, nil
}

// Create persists a semester record.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = now
	}
	semester.UpdatedAt = now

	const query = `INSERT INTO semesters (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// Update modifies a semester record.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// Delete removes a semester together with its classes and modules.
func (r *SemesterRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete semester: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM modules WHERE class_id IN (SELECT id FROM classes WHERE semester_id = ?)"), id); err != nil {
		return fmt.Errorf("delete semester modules: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM classes WHERE semester_id = ?"), id); err != nil {
		return fmt.Errorf("delete semester classes: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM semesters WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete semester: %w", err)
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

// expectAffected turns a statement that touched no row into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
