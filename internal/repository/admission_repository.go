package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

// ReservationScope describes the capacity pool a transition draws from.
// AssignmentID is empty for the virtual assignment derived from a course's
// direct organization linkage, which is never capacity-bound.
type ReservationScope struct {
	AssignmentID   string
	CourseID       string
	OrganizationID string
	DepartmentID   *string
	Capacity       *int
	Description    string
}

// TransitionParams drive a single status transition.
type TransitionParams struct {
	EnrollmentID string
	NextStatus   models.EnrollmentStatus
	ApprovedLike []string
	StampStarted bool
	Scope        *ReservationScope
}

// BulkGroup is a batch slice sharing one reservation scope.
type BulkGroup struct {
	Scope       *ReservationScope
	Enrollments []models.Enrollment
}

// AdmissionRepository executes the reserve-or-reject decision as one atomic
// unit: the governing assignment row is locked FOR UPDATE, current usage is
// counted inside the transaction and the status write commits only while the
// lock is held, so two racing admissions can never both observe a free seat.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

// Transition applies one status change, enforcing capacity when the
// reservation scope is capacity-bound.
func (r *AdmissionRepository) Transition(ctx context.Context, p TransitionParams) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin admission: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockEnrollment(ctx, tx, p.EnrollmentID)
	if err != nil {
		return nil, err
	}

	if p.Scope != nil && p.Scope.Capacity != nil && !statusIn(current.Status, p.ApprovedLike) {
		used, err := lockAndCount(ctx, tx, p.Scope, p.ApprovedLike)
		if err != nil {
			return nil, err
		}
		if used >= *p.Scope.Capacity {
			return nil, appErrors.CapacityExceeded(used, *p.Scope.Capacity, p.Scope.Description)
		}
	}

	updated, err := writeStatus(ctx, tx, p.EnrollmentID, p.NextStatus, p.StampStarted)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit admission: %w", err)
	}
	return updated, nil
}

// BulkTransition applies one status to every enrollment in the batch, all or
// nothing. Enrollment rows are locked first and assignment rows after, both
// in sorted order, the same acquisition order Transition uses. Each group is
// validated in aggregate before any row is written.
func (r *AdmissionRepository) BulkTransition(ctx context.Context, groups []BulkGroup, nextStatus models.EnrollmentStatus, approvedLike []string, stampStarted bool) ([]models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk admission: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockEnrollments(ctx, tx, groups); err != nil {
		return nil, err
	}

	ordered := make([]BulkGroup, len(groups))
	copy(ordered, groups)
	sort.Slice(ordered, func(i, j int) bool {
		left, right := "", ""
		if ordered[i].Scope != nil {
			left = ordered[i].Scope.AssignmentID
		}
		if ordered[j].Scope != nil {
			right = ordered[j].Scope.AssignmentID
		}
		return left < right
	})

	for _, group := range ordered {
		if group.Scope == nil || group.Scope.Capacity == nil {
			continue
		}
		used, err := lockAndCount(ctx, tx, group.Scope, approvedLike)
		if err != nil {
			return nil, err
		}
		incoming := 0
		for _, e := range group.Enrollments {
			if !statusIn(e.Status, approvedLike) {
				incoming++
			}
		}
		if used+incoming > *group.Scope.Capacity {
			return nil, appErrors.CapacityExceeded(used, *group.Scope.Capacity, group.Scope.Description)
		}
	}

	var updated []models.Enrollment
	for _, group := range ordered {
		for _, e := range group.Enrollments {
			row, err := writeStatus(ctx, tx, e.ID, nextStatus, stampStarted)
			if err != nil {
				return nil, err
			}
			updated = append(updated, *row)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk admission: %w", err)
	}
	return updated, nil
}

// lockEnrollments pins every enrollment row of the batch in id order.
func lockEnrollments(ctx context.Context, tx *sqlx.Tx, groups []BulkGroup) error {
	var ids []string
	for _, g := range groups {
		for _, e := range g.Enrollments {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	const query = `SELECT id FROM enrollments WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	var locked []string
	if err := tx.SelectContext(ctx, &locked, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("lock enrollments: %w", err)
	}
	return nil
}

func lockEnrollment(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 FOR UPDATE`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}

// lockAndCount pins the governing assignment row and counts approved-like
// usage at its scope while the lock is held. A scope whose row disappeared
// mid-decision surfaces as NOT_ASSIGNED.
func lockAndCount(ctx context.Context, tx *sqlx.Tx, scope *ReservationScope, approvedLike []string) (int, error) {
	var id string
	const lock = `SELECT id FROM course_assignments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err := tx.GetContext(ctx, &id, lock, scope.AssignmentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotAssigned, "assignment was removed while deciding admission")
		}
		return 0, fmt.Errorf("lock assignment: %w", err)
	}

	if scope.DepartmentID != nil {
		return countApprovedLikeAtDepartment(ctx, tx, scope.CourseID, *scope.DepartmentID, approvedLike)
	}
	return countApprovedLikeAtOrganization(ctx, tx, scope.CourseID, scope.OrganizationID, approvedLike)
}

func writeStatus(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, stampStarted bool) (*models.Enrollment, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE enrollments
        SET status = $2, updated_at = $3,
            started_at = CASE WHEN $4 THEN COALESCE(started_at, $3) ELSE started_at END
        WHERE id = $1
        RETURNING %s`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, query, id, status, now, stampStarted); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, fmt.Errorf("update enrollment status: %w", err)
	}
	return &enrollment, nil
}

func statusIn(status models.EnrollmentStatus, set []string) bool {
	for _, s := range set {
		if string(status) == s {
			return true
		}
	}
	return false
}
