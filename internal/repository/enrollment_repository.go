package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kartik-560/lms-backend/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and the
// approved-like capacity counts.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, department_id, status, created_at, started_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"student_name": "u.full_name",
		"course_title": "c.title",
		"status":       "e.status",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.department_id, e.status, e.created_at, e.started_at, e.updated_at,
        u.full_name AS student_name, c.title AS course_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByIDs returns enrollments for the given ids preserving no particular order.
func (r *EnrollmentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Enrollment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = ANY($1)`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find enrollments: %w", err)
	}
	return enrollments, nil
}

// Exists checks whether the student already has an enrollment for the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, courseID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, department_id, status, created_at, started_at, updated_at)
        VALUES (:id, :student_id, :course_id, :department_id, :status, :created_at, :started_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment by explicit administrative action.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountApprovedLikeAtDepartment counts capacity-consuming enrollments for a
// course within one department.
func (r *EnrollmentRepository) CountApprovedLikeAtDepartment(ctx context.Context, courseID, departmentID string, statuses []string) (int, error) {
	return countApprovedLikeAtDepartment(ctx, r.db, courseID, departmentID, statuses)
}

// CountApprovedLikeAtOrganization counts capacity-consuming enrollments for a
// course across an organization. A student's organization is their most
// recent membership record, not a cached column.
func (r *EnrollmentRepository) CountApprovedLikeAtOrganization(ctx context.Context, courseID, organizationID string, statuses []string) (int, error) {
	return countApprovedLikeAtOrganization(ctx, r.db, courseID, organizationID, statuses)
}

func countApprovedLikeAtDepartment(ctx context.Context, q sqlx.QueryerContext, courseID, departmentID string, statuses []string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments
        WHERE course_id = $1 AND department_id = $2 AND status = ANY($3)`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, courseID, departmentID, pq.Array(statuses)); err != nil {
		return 0, fmt.Errorf("count department admissions: %w", err)
	}
	return count, nil
}

func countApprovedLikeAtOrganization(ctx context.Context, q sqlx.QueryerContext, courseID, organizationID string, statuses []string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments e
        JOIN LATERAL (
            SELECT m.organization_id FROM org_memberships m
            WHERE m.user_id = e.student_id
            ORDER BY m.created_at DESC LIMIT 1
        ) m ON TRUE
        WHERE e.course_id = $1 AND m.organization_id = $2 AND e.status = ANY($3)`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, courseID, organizationID, pq.Array(statuses)); err != nil {
		return 0, fmt.Errorf("count organization admissions: %w", err)
	}
	return count, nil
}
