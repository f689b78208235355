package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

// AssignmentRepository handles persistence of course assignments.
//
// All mutations lock the full (course, organization) row set FOR UPDATE so the
// org-wide/department exclusivity check, idempotent upserts and concurrent
// admission decisions serialize on the same rows.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, course_id, organization_id, department_id, capacity, created_at, updated_at, deleted_at`

// FindDepartmentRow returns the live department-scoped assignment for the triple.
func (r *AssignmentRepository) FindDepartmentRow(ctx context.Context, courseID, organizationID, departmentID string) (*models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments
        WHERE course_id = $1 AND organization_id = $2 AND department_id = $3 AND deleted_at IS NULL`, assignmentColumns)
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, courseID, organizationID, departmentID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindOrgWideRow returns the live organization-wide assignment for the pair.
func (r *AssignmentRepository) FindOrgWideRow(ctx context.Context, courseID, organizationID string) (*models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments
        WHERE course_id = $1 AND organization_id = $2 AND department_id IS NULL AND deleted_at IS NULL`, assignmentColumns)
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, courseID, organizationID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindByID returns a live assignment by primary key.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments WHERE id = $1 AND deleted_at IS NULL`, assignmentColumns)
	var assignment models.CourseAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListForCourse returns all live assignments of a course ordered by
// organization then department.
func (r *AssignmentRepository) ListForCourse(ctx context.Context, courseID string) ([]models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments
        WHERE course_id = $1 AND deleted_at IS NULL
        ORDER BY organization_id ASC, department_id ASC NULLS FIRST`, assignmentColumns)
	var assignments []models.CourseAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return assignments, nil
}

// ListForOrganization returns live assignments targeting the organization,
// both org-wide and department-scoped.
func (r *AssignmentRepository) ListForOrganization(ctx context.Context, courseID, organizationID string) ([]models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments
        WHERE course_id = $1 AND organization_id = $2 AND deleted_at IS NULL
        ORDER BY department_id ASC NULLS FIRST`, assignmentColumns)
	var assignments []models.CourseAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, courseID, organizationID); err != nil {
		return nil, fmt.Errorf("list organization assignments: %w", err)
	}
	return assignments, nil
}

// lockPair reads every assignment row (live and soft-deleted) for the
// (course, organization) pair under a row lock.
func lockPair(ctx context.Context, tx *sqlx.Tx, courseID, organizationID string) ([]models.CourseAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_assignments
        WHERE course_id = $1 AND organization_id = $2 FOR UPDATE`, assignmentColumns)
	var rows []models.CourseAssignment
	if err := tx.SelectContext(ctx, &rows, query, courseID, organizationID); err != nil {
		return nil, fmt.Errorf("lock assignment pair: %w", err)
	}
	return rows, nil
}

// Upsert creates or updates the assignment identified by its triple,
// enforcing the org-wide/department exclusivity invariant. Re-assigning an
// existing triple updates capacity in place; a soft-deleted row is revived.
func (r *AssignmentRepository) Upsert(ctx context.Context, assignment *models.CourseAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := lockPair(ctx, tx, assignment.CourseID, assignment.OrganizationID)
	if err != nil {
		return err
	}

	var match *models.CourseAssignment
	for i := range rows {
		row := &rows[i]
		sameScope := (row.DepartmentID == nil) == (assignment.DepartmentID == nil) &&
			(row.DepartmentID == nil || *row.DepartmentID == *assignment.DepartmentID)
		if sameScope {
			match = row
			continue
		}
		if row.DeletedAt != nil {
			continue
		}
		if assignment.DepartmentID != nil && row.DepartmentID == nil {
			return appErrors.Clone(appErrors.ErrConflict, "an organization-wide assignment already exists for this course and organization")
		}
		if assignment.DepartmentID == nil && row.DepartmentID != nil {
			return appErrors.Clone(appErrors.ErrConflict, "department assignments exist for this course and organization; remove them first")
		}
	}

	now := time.Now().UTC()
	if match != nil {
		const update = `UPDATE course_assignments SET capacity = $2, updated_at = $3, deleted_at = NULL WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, match.ID, assignment.Capacity, now); err != nil {
			return fmt.Errorf("update assignment capacity: %w", err)
		}
		assignment.ID = match.ID
		assignment.CreatedAt = match.CreatedAt
	} else {
		assignment.ID = uuid.NewString()
		assignment.CreatedAt = now
		const insert = `INSERT INTO course_assignments (id, course_id, organization_id, department_id, capacity, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $6)`
		if _, err := tx.ExecContext(ctx, insert, assignment.ID, assignment.CourseID, assignment.OrganizationID, assignment.DepartmentID, assignment.Capacity, now); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	assignment.UpdatedAt = now
	assignment.DeletedAt = nil

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment upsert: %w", err)
	}
	return nil
}

// RemoveDepartment soft-deletes the department-scoped row for the triple.
func (r *AssignmentRepository) RemoveDepartment(ctx context.Context, courseID, organizationID, departmentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment removal: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := lockPair(ctx, tx, courseID, organizationID)
	if err != nil {
		return err
	}

	var target *models.CourseAssignment
	for i := range rows {
		row := &rows[i]
		if row.DeletedAt == nil && row.DepartmentID != nil && *row.DepartmentID == departmentID {
			target = row
			break
		}
	}
	if target == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	if err := softDeleteAssignments(ctx, tx, []string{target.ID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment removal: %w", err)
	}
	return nil
}

// RemoveOrgWide soft-deletes the organization-wide row. When department rows
// still exist the removal is rejected unless cascade is set, in which case the
// department rows are removed in the same transaction. Without a live
// org-wide row the call fails as not found and touches nothing, cascade or
// not.
func (r *AssignmentRepository) RemoveOrgWide(ctx context.Context, courseID, organizationID string, cascade bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment removal: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := lockPair(ctx, tx, courseID, organizationID)
	if err != nil {
		return err
	}

	var ids []string
	var orgWideFound, deptFound bool
	for i := range rows {
		row := &rows[i]
		if row.DeletedAt != nil {
			continue
		}
		if row.DepartmentID == nil {
			orgWideFound = true
		} else {
			deptFound = true
		}
		ids = append(ids, row.ID)
	}
	if !orgWideFound {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if deptFound && !cascade {
		return appErrors.Clone(appErrors.ErrConflict, "department assignments exist; remove them first or cascade")
	}

	if err := softDeleteAssignments(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment removal: %w", err)
	}
	return nil
}

func softDeleteAssignments(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, id := range ids {
		const query = `UPDATE course_assignments SET deleted_at = $2, updated_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, now); err != nil {
			return fmt.Errorf("soft delete assignment %s: %w", id, err)
		}
	}
	return nil
}

// HasAnyForCourse reports whether the course carries a live assignment
// reaching the given affiliation: the org-wide row, or the department row for
// the given department. Without a department only the org-wide row matches;
// other departments' rows never do.
func (r *AssignmentRepository) HasAnyForCourse(ctx context.Context, courseID, organizationID string, departmentID *string) (bool, error) {
	query := `SELECT 1 FROM course_assignments
        WHERE course_id = $1 AND organization_id = $2 AND deleted_at IS NULL`
	args := []interface{}{courseID, organizationID}
	if departmentID != nil {
		query += ` AND (department_id IS NULL OR department_id = $3)`
		args = append(args, *departmentID)
	} else {
		query += ` AND department_id IS NULL`
	}
	query += ` LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course assignment: %w", err)
	}
	return true, nil
}
