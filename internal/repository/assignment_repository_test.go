package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "course_id", "organization_id", "department_id", "capacity", "created_at", "updated_at", "deleted_at"})
}

func TestAssignmentRepositoryUpsertInsert(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_assignments")).
		WithArgs(sqlmock.AnyArg(), "c1", "o1", "d1", 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignment := &models.CourseAssignment{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
		Capacity:       intPtr(25),
	}
	err := repo.Upsert(context.Background(), assignment)
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
}

func TestAssignmentRepositoryUpsertDepartmentBlockedByOrgWide(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().AddRow("a1", "c1", "o1", nil, nil, now, now, nil))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.CourseAssignment{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
		Capacity:       intPtr(10),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentRepositoryUpsertOrgWideBlockedByDepartments(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().AddRow("a1", "c1", "o1", "d1", 10, now, now, nil))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.CourseAssignment{
		CourseID:       "c1",
		OrganizationID: "o1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentRepositoryUpsertRevivesSoftDeleted(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().AddRow("a1", "c1", "o1", "d1", 10, now, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_assignments SET capacity = $2, updated_at = $3, deleted_at = NULL WHERE id = $1")).
		WithArgs("a1", 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignment := &models.CourseAssignment{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
		Capacity:       intPtr(30),
	}
	err := repo.Upsert(context.Background(), assignment)
	require.NoError(t, err)
	assert.Equal(t, "a1", assignment.ID)
	assert.Nil(t, assignment.DeletedAt)
}

func TestAssignmentRepositoryRemoveOrgWideRequiresCascade(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().
			AddRow("a1", "c1", "o1", nil, nil, now, now, nil).
			AddRow("a2", "c1", "o1", "d1", 10, now, now, nil))
	mock.ExpectRollback()

	err := repo.RemoveOrgWide(context.Background(), "c1", "o1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentRepositoryRemoveOrgWideCascades(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().
			AddRow("a1", "c1", "o1", nil, nil, now, now, nil).
			AddRow("a2", "c1", "o1", "d1", 10, now, now, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1")).
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1")).
		WithArgs("a2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.RemoveOrgWide(context.Background(), "c1", "o1", true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryRemoveOrgWideMissingRow(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_assignments")).
		WithArgs("c1", "o1").
		WillReturnRows(assignmentRows().
			AddRow("a2", "c1", "o1", "d1", 10, now, now, nil))
	mock.ExpectRollback()

	err := repo.RemoveOrgWide(context.Background(), "c1", "o1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryHasAnyForCourse(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND (department_id IS NULL OR department_id = $3) LIMIT 1")).
		WithArgs("c1", "o1", "d1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	found, err := repo.HasAnyForCourse(context.Background(), "c1", "o1", strPtr("d1"))
	require.NoError(t, err)
	assert.True(t, found)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM course_assignments")).
		WithArgs("c2", "o1").
		WillReturnError(sql.ErrNoRows)

	found, err = repo.HasAnyForCourse(context.Background(), "c2", "o1", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAssignmentRepositoryHasAnyForCourseNilDepartmentMatchesOrgWideOnly(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND deleted_at IS NULL AND department_id IS NULL LIMIT 1")).
		WithArgs("c1", "o1").
		WillReturnError(sql.ErrNoRows)

	found, err := repo.HasAnyForCourse(context.Background(), "c1", "o1", nil)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("AND deleted_at IS NULL AND department_id IS NULL LIMIT 1")).
		WithArgs("c1", "o1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	found, err = repo.HasAnyForCourse(context.Background(), "c1", "o1", nil)
	require.NoError(t, err)
	assert.True(t, found)
}
