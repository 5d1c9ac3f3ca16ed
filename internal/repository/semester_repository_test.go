package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestSemesterRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow("s1", "Semestre 1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM semesters WHERE 1=1 ORDER BY created_at ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM semesters WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SemesterFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryListWithSearchAndSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM semesters WHERE 1=1 AND LOWER(name) LIKE $1 ORDER BY name DESC LIMIT 10 OFFSET 10")).
		WithArgs("%sem%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM semesters WHERE 1=1 AND LOWER(name) LIKE $1")).
		WithArgs("%sem%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.SemesterFilter{Search: "Sem", Page: 2, PageSize: 10, SortBy: "name", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryLoadTree(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM semesters WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow("s1", "S1", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, semester_id, name, created_at, updated_at FROM classes WHERE semester_id = $1 ORDER BY created_at, id")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "semester_id", "name", "created_at", "updated_at"}).
			AddRow("c1", "s1", "Maths", now, now).
			AddRow("c2", "s1", "Langues", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, name, assignment_grade, exam_grade, coefficient, created_at, updated_at FROM modules WHERE class_id IN (SELECT id FROM classes WHERE semester_id = $1) ORDER BY created_at, id")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "name", "assignment_grade", "exam_grade", "coefficient", "created_at", "updated_at"}).
			AddRow("m1", "c1", "Algebre", 14.0, 16.0, 1.0, now, now).
			AddRow("m2", "c1", "Analyse", 0.0, nil, 2.0, now, now))
	mock.ExpectCommit()

	semester, err := repo.LoadTree(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, semester.Classes, 2)
	maths := semester.Classes[0]
	require.Len(t, maths.Modules, 2)
	assert.True(t, maths.Modules[0].Completed())
	assert.True(t, maths.Modules[1].AssignmentGrade.Valid)
	assert.Equal(t, 0.0, maths.Modules[1].AssignmentGrade.Float64)
	assert.False(t, maths.Modules[1].ExamGrade.Valid)
	assert.NotNil(t, semester.Classes[1].Modules)
	assert.Empty(t, semester.Classes[1].Modules)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryLoadTreeNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM semesters WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))
	mock.ExpectRollback()

	_, err := repo.LoadTree(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryCreateAndExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectExec("INSERT INTO semesters").
		WithArgs(sqlmock.AnyArg(), "Semestre 1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	semester := &models.Semester{Name: "Semestre 1"}
	require.NoError(t, repo.Create(context.Background(), semester))
	assert.NotEmpty(t, semester.ID)
	assert.False(t, semester.CreatedAt.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM semesters WHERE LOWER(name) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("semestre 1", "other").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	exists, err := repo.ExistsByName(context.Background(), "semestre 1", "other")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM modules WHERE class_id IN (SELECT id FROM classes WHERE semester_id = $1)")).
		WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE semester_id = $1")).
		WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM semesters WHERE id = $1")).
		WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM modules").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM classes").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM semesters").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
