package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type assignmentRepository interface {
	FindDepartmentRow(ctx context.Context, courseID, organizationID, departmentID string) (*models.CourseAssignment, error)
	FindOrgWideRow(ctx context.Context, courseID, organizationID string) (*models.CourseAssignment, error)
	ListForCourse(ctx context.Context, courseID string) ([]models.CourseAssignment, error)
	ListForOrganization(ctx context.Context, courseID, organizationID string) ([]models.CourseAssignment, error)
	Upsert(ctx context.Context, assignment *models.CourseAssignment) error
	RemoveDepartment(ctx context.Context, courseID, organizationID, departmentID string) error
	RemoveOrgWide(ctx context.Context, courseID, organizationID string, cascade bool) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type organizationReader interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

type departmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// CreateAssignmentRequest describes an assignment upsert.
type CreateAssignmentRequest struct {
	CourseID       string  `json:"course_id" validate:"required"`
	OrganizationID string  `json:"organization_id" validate:"required"`
	DepartmentID   *string `json:"department_id,omitempty"`
	Capacity       *int    `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

// RemoveAssignmentRequest describes an assignment removal. Cascade lets a
// platform admin take department rows down together with the org-wide row.
type RemoveAssignmentRequest struct {
	CourseID       string  `json:"course_id" validate:"required"`
	OrganizationID string  `json:"organization_id" validate:"required"`
	DepartmentID   *string `json:"department_id,omitempty"`
	Cascade        bool    `json:"cascade,omitempty"`
}

// AssignmentService manages course assignments and resolves the effective
// assignment governing an admission context.
type AssignmentService struct {
	repo          assignmentRepository
	courses       courseReader
	organizations organizationReader
	departments   departmentReader
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, courses courseReader, organizations organizationReader, departments departmentReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, courses: courses, organizations: organizations, departments: departments, validator: validate, logger: logger}
}

// CreateOrUpdate creates an assignment or idempotently updates its capacity.
// An org admin may only assign within their own organization and only at
// department granularity; a platform admin may act at either granularity.
func (s *AssignmentService) CreateOrUpdate(ctx context.Context, req CreateAssignmentRequest, actor models.Actor) (*models.CourseAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.authorize(req.OrganizationID, req.DepartmentID, actor); err != nil {
		return nil, err
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, appErrors.FromStore(err, "course not found")
	}
	if _, err := s.organizations.FindByID(ctx, req.OrganizationID); err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	if req.DepartmentID != nil {
		dept, err := s.departments.FindByID(ctx, *req.DepartmentID)
		if err != nil {
			return nil, appErrors.FromStore(err, "department not found")
		}
		if dept.OrganizationID != req.OrganizationID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to the organization")
		}
	}

	assignment := &models.CourseAssignment{
		CourseID:       req.CourseID,
		OrganizationID: req.OrganizationID,
		DepartmentID:   req.DepartmentID,
		Capacity:       req.Capacity,
	}
	if err := s.repo.Upsert(ctx, assignment); err != nil {
		return nil, appErrors.FromStore(err, "assignment not found")
	}
	s.logger.Info("assignment upserted",
		zap.String("course_id", assignment.CourseID),
		zap.String("organization_id", assignment.OrganizationID),
		zap.Stringp("department_id", assignment.DepartmentID))
	return assignment, nil
}

// Remove deletes an assignment row. Department removal is open to the owning
// org admin; org-wide removal is platform-admin only and must either cascade
// over remaining department rows or be rejected.
func (s *AssignmentService) Remove(ctx context.Context, req RemoveAssignmentRequest, actor models.Actor) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.authorize(req.OrganizationID, req.DepartmentID, actor); err != nil {
		return err
	}

	if req.DepartmentID != nil {
		if err := s.repo.RemoveDepartment(ctx, req.CourseID, req.OrganizationID, *req.DepartmentID); err != nil {
			return appErrors.FromStore(err, "assignment not found")
		}
		return nil
	}
	if err := s.repo.RemoveOrgWide(ctx, req.CourseID, req.OrganizationID, req.Cascade); err != nil {
		return appErrors.FromStore(err, "assignment not found")
	}
	return nil
}

// ListForCourse returns the course's assignments grouped by organization.
// Org admins get only their own organization's group.
func (s *AssignmentService) ListForCourse(ctx context.Context, courseID string, actor models.Actor) ([]models.CourseOrgAssignments, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, appErrors.FromStore(err, "course not found")
	}

	var assignments []models.CourseAssignment
	var err error
	if actor.Role == models.RoleOrgAdmin {
		assignments, err = s.repo.ListForOrganization(ctx, courseID, actor.OrganizationID)
	} else {
		assignments, err = s.repo.ListForCourse(ctx, courseID)
	}
	if err != nil {
		return nil, appErrors.FromStore(err, "course not found")
	}

	grouped := make([]models.CourseOrgAssignments, 0)
	index := make(map[string]int)
	for _, a := range assignments {
		a := a
		i, ok := index[a.OrganizationID]
		if !ok {
			i = len(grouped)
			index[a.OrganizationID] = i
			grouped = append(grouped, models.CourseOrgAssignments{OrganizationID: a.OrganizationID, Departments: []models.CourseAssignment{}})
		}
		if a.DepartmentScoped() {
			grouped[i].Departments = append(grouped[i].Departments, a)
		} else {
			grouped[i].OrgWide = &a
		}
	}
	return grouped, nil
}

// Resolve returns the single assignment governing the given context:
// the department row when one exists, else the org-wide row, else the
// unlimited virtual assignment for a course authored directly for the
// organization. A nil result means the course is not assigned and admission
// is forbidden.
func (s *AssignmentService) Resolve(ctx context.Context, courseID, organizationID string, departmentID *string) (*models.EffectiveAssignment, error) {
	if departmentID != nil && *departmentID != "" {
		row, err := s.repo.FindDepartmentRow(ctx, courseID, organizationID, *departmentID)
		if err == nil {
			return &models.EffectiveAssignment{CourseAssignment: *row}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.FromStore(err, "assignment not found")
		}
	}

	row, err := s.repo.FindOrgWideRow(ctx, courseID, organizationID)
	if err == nil {
		return &models.EffectiveAssignment{CourseAssignment: *row}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromStore(err, "assignment not found")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromStore(err, "course not found")
	}
	if course.OrganizationID != nil && *course.OrganizationID == organizationID {
		return &models.EffectiveAssignment{
			CourseAssignment: models.CourseAssignment{
				CourseID:       courseID,
				OrganizationID: organizationID,
			},
			Virtual: true,
		}, nil
	}
	return nil, nil
}

func (s *AssignmentService) authorize(organizationID string, departmentID *string, actor models.Actor) error {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleOrgAdmin:
		if actor.OrganizationID != organizationID {
			return appErrors.Clone(appErrors.ErrForbidden, "organization admins may only manage their own organization")
		}
		if departmentID == nil || *departmentID == "" {
			return appErrors.Clone(appErrors.ErrForbidden, "organization admins manage department assignments only")
		}
		return nil
	default:
		return appErrors.ErrForbidden
	}
}
