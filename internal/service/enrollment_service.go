package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, courseID, studentID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

// RequestEnrollmentRequest creates a new admission request. StudentID may
// only be set by administrators performing a direct grant.
type RequestEnrollmentRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	StudentID string `json:"student_id,omitempty"`
}

// EnrollmentService handles enrollment intake and listing. Status changes
// are the AdmissionService's job.
type EnrollmentService struct {
	repo        enrollmentRepository
	courses     courseReader
	memberships affiliationReader
	resolver    assignmentResolver
	eligibility eligibilityGate
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, memberships affiliationReader, resolver assignmentResolver, eligibility eligibilityGate, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, memberships: memberships, resolver: resolver, eligibility: eligibility, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata. Students only see their
// own requests; instructors must be eligible for the course they filter by.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter, actor models.Actor) ([]models.EnrollmentDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleInstructor:
		if filter.CourseID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "instructors must filter by course")
		}
		if err := s.eligibility.Require(ctx, actor, filter.CourseID); err != nil {
			return nil, nil, err
		}
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.FromStore(err, "enrollments not found")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Request registers a pending enrollment. The course must be visible to the
// student's organization, i.e. an effective assignment (or a direct course
// organization link) must resolve for their affiliation.
func (s *EnrollmentService) Request(ctx context.Context, req RequestEnrollmentRequest, actor models.Actor) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	studentID := actor.UserID
	if req.StudentID != "" && req.StudentID != actor.UserID {
		if !actor.Role.Admin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may enroll other students")
		}
		studentID = req.StudentID
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.FromStore(err, "course not found")
	}
	if course.Status != models.CourseStatusPublished && !actor.Role.Admin() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for enrollment")
	}

	affiliation, err := s.memberships.LatestAffiliation(ctx, studentID)
	if err != nil {
		return nil, appErrors.FromStore(err, "student has no organization registration")
	}

	effective, err := s.resolver.Resolve(ctx, req.CourseID, affiliation.OrganizationID, affiliation.DepartmentID)
	if err != nil {
		return nil, err
	}
	if effective == nil {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "course is not available to the student's organization or department")
	}

	exists, err := s.repo.Exists(ctx, req.CourseID, studentID)
	if err != nil {
		return nil, appErrors.FromStore(err, "enrollment not found")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already requested enrollment for this course")
	}

	enrollment := &models.Enrollment{
		StudentID:    studentID,
		CourseID:     req.CourseID,
		DepartmentID: affiliation.DepartmentID,
		Status:       models.EnrollmentStatusPending,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.FromStore(err, "enrollment not found")
	}
	s.logger.Info("enrollment requested",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("course_id", req.CourseID),
		zap.String("student_id", studentID))
	return enrollment, nil
}

// Remove hard-deletes an enrollment by explicit administrative action.
func (s *EnrollmentService) Remove(ctx context.Context, id string, actor models.Actor) error {
	if !actor.Role.Admin() {
		return appErrors.ErrForbidden
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return appErrors.FromStore(err, "enrollment not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.FromStore(err, "enrollment not found")
	}
	return nil
}
