package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type affiliationReader interface {
	LatestAffiliation(ctx context.Context, userID string) (*models.Affiliation, error)
}

type assignmentMatcher interface {
	HasAnyForCourse(ctx context.Context, courseID, organizationID string, departmentID *string) (bool, error)
}

// EligibilityService decides whether an actor may view or moderate the
// enrollments of a course. Administrators bypass the check; instructors must
// match the course's assignments through their current affiliation, which is
// read from the latest membership record rather than cached claims.
type EligibilityService struct {
	memberships affiliationReader
	assignments assignmentMatcher
	courses     courseReader
	logger      *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(memberships affiliationReader, assignments assignmentMatcher, courses courseReader, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{memberships: memberships, assignments: assignments, courses: courses, logger: logger}
}

// IsEligible reports whether the actor may moderate the course's enrollments.
func (s *EligibilityService) IsEligible(ctx context.Context, actor models.Actor, courseID string) (bool, error) {
	if actor.Role.Admin() {
		return true, nil
	}
	if actor.Role != models.RoleInstructor {
		return false, nil
	}

	affiliation, err := s.memberships.LatestAffiliation(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.FromStore(err, "affiliation not found")
	}

	matched, err := s.assignments.HasAnyForCourse(ctx, courseID, affiliation.OrganizationID, affiliation.DepartmentID)
	if err != nil {
		return false, appErrors.FromStore(err, "course not found")
	}
	if matched {
		return true, nil
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return false, appErrors.FromStore(err, "course not found")
	}
	return course.OrganizationID != nil && *course.OrganizationID == affiliation.OrganizationID, nil
}

// Require returns ErrForbidden when the actor is not eligible.
func (s *EligibilityService) Require(ctx context.Context, actor models.Actor, courseID string) error {
	eligible, err := s.IsEligible(ctx, actor, courseID)
	if err != nil {
		return err
	}
	if !eligible {
		return appErrors.Clone(appErrors.ErrForbidden, "not eligible to moderate this course")
	}
	return nil
}
