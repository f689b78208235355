package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type organizationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	Create(ctx context.Context, org *models.Organization) error
	SetActive(ctx context.Context, id string, active bool) error
	SoftDelete(ctx context.Context, id string) error
	SetPermissions(ctx context.Context, id string, perms models.OrgPermissions) error
	GetPermissions(ctx context.Context, id string) (*models.OrgPermissions, error)
}

type departmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Department, error)
	CountByOrganization(ctx context.Context, organizationID string) (int, error)
	ExistsByName(ctx context.Context, organizationID, name string) (bool, error)
	Create(ctx context.Context, dept *models.Department) error
	SoftDelete(ctx context.Context, id string) error
}

type membershipWriter interface {
	Create(ctx context.Context, m *models.OrgMembership) error
	CountByRole(ctx context.Context, organizationID string, role models.UserRole) (int, error)
}

// CreateOrganizationRequest describes a new tenant.
type CreateOrganizationRequest struct {
	Name            string `json:"name" validate:"required,min=2"`
	StudentLimit    *int   `json:"student_limit,omitempty" validate:"omitempty,min=0"`
	InstructorLimit *int   `json:"instructor_limit,omitempty" validate:"omitempty,min=0"`
	AdminLimit      *int   `json:"admin_limit,omitempty" validate:"omitempty,min=0"`
	DepartmentLimit *int   `json:"department_limit,omitempty" validate:"omitempty,min=0"`
}

// CreateDepartmentRequest describes a new subdivision.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// RegisterMemberRequest appends an organization registration for a user.
type RegisterMemberRequest struct {
	UserID       string          `json:"user_id" validate:"required"`
	DepartmentID *string         `json:"department_id,omitempty"`
	Role         models.UserRole `json:"role" validate:"required,oneof=ORG_ADMIN INSTRUCTOR STUDENT"`
}

// UpdatePermissionsRequest replaces an organization's admin toggles.
type UpdatePermissionsRequest struct {
	Toggles map[string]models.AdminToggles `json:"toggles" validate:"required"`
}

// OrganizationService manages tenants, their departments and membership
// registrations.
type OrganizationService struct {
	orgs        organizationRepository
	departments departmentRepository
	memberships membershipWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewOrganizationService constructs OrganizationService.
func NewOrganizationService(orgs organizationRepository, departments departmentRepository, memberships membershipWriter, validate *validator.Validate, logger *zap.Logger) *OrganizationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{orgs: orgs, departments: departments, memberships: memberships, validator: validate, logger: logger}
}

// Create registers a new organization. Platform admin only.
func (s *OrganizationService) Create(ctx context.Context, req CreateOrganizationRequest, actor models.Actor) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid organization payload")
	}
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	org := &models.Organization{
		Name:            req.Name,
		Active:          true,
		StudentLimit:    req.StudentLimit,
		InstructorLimit: req.InstructorLimit,
		AdminLimit:      req.AdminLimit,
		DepartmentLimit: req.DepartmentLimit,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	s.logger.Info("organization created", zap.String("organization_id", org.ID), zap.String("name", org.Name))
	return org, nil
}

// List returns all live organizations.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "organizations not found")
	}
	return orgs, nil
}

// SetActive toggles sign-in for the organization's members. Deactivation
// never deletes data.
func (s *OrganizationService) SetActive(ctx context.Context, id string, active bool, actor models.Actor) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if _, err := s.orgs.FindByID(ctx, id); err != nil {
		return appErrors.FromStore(err, "organization not found")
	}
	if err := s.orgs.SetActive(ctx, id, active); err != nil {
		return appErrors.FromStore(err, "organization not found")
	}
	return nil
}

// Remove soft-deletes an organization.
func (s *OrganizationService) Remove(ctx context.Context, id string, actor models.Actor) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if _, err := s.orgs.FindByID(ctx, id); err != nil {
		return appErrors.FromStore(err, "organization not found")
	}
	if err := s.orgs.SoftDelete(ctx, id); err != nil {
		return appErrors.FromStore(err, "organization not found")
	}
	s.logger.Info("organization removed", zap.String("organization_id", id))
	return nil
}

// CreateDepartment adds a department, enforcing the organization's
// department limit and case-insensitive name uniqueness.
func (s *OrganizationService) CreateDepartment(ctx context.Context, organizationID string, req CreateDepartmentRequest, actor models.Actor) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	if err := s.authorizeOrg(organizationID, actor); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, organizationID)
	if err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	if org.DepartmentLimit != nil {
		count, err := s.departments.CountByOrganization(ctx, organizationID)
		if err != nil {
			return nil, appErrors.FromStore(err, "organization not found")
		}
		if count >= *org.DepartmentLimit {
			return nil, appErrors.Clone(appErrors.ErrConflict, "organization department limit reached")
		}
	}

	exists, err := s.departments.ExistsByName(ctx, organizationID, req.Name)
	if err != nil {
		return nil, appErrors.FromStore(err, "department not found")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a department with this name already exists")
	}

	dept := &models.Department{OrganizationID: organizationID, Name: req.Name}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, appErrors.FromStore(err, "department not found")
	}
	return dept, nil
}

// ListDepartments returns the organization's live departments.
func (s *OrganizationService) ListDepartments(ctx context.Context, organizationID string) ([]models.Department, error) {
	depts, err := s.departments.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, appErrors.FromStore(err, "departments not found")
	}
	return depts, nil
}

// RemoveDepartment soft-deletes a department within the actor's reach.
func (s *OrganizationService) RemoveDepartment(ctx context.Context, departmentID string, actor models.Actor) error {
	dept, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		return appErrors.FromStore(err, "department not found")
	}
	if err := s.authorizeOrg(dept.OrganizationID, actor); err != nil {
		return err
	}
	if err := s.departments.SoftDelete(ctx, departmentID); err != nil {
		return appErrors.FromStore(err, "department not found")
	}
	return nil
}

// RegisterMember appends a membership registration, enforcing role limits.
func (s *OrganizationService) RegisterMember(ctx context.Context, organizationID string, req RegisterMemberRequest, actor models.Actor) (*models.OrgMembership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid membership payload")
	}
	if err := s.authorizeOrg(organizationID, actor); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, organizationID)
	if err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	if !org.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "organization is deactivated")
	}

	if limit := roleLimit(org, req.Role); limit != nil {
		count, err := s.memberships.CountByRole(ctx, organizationID, req.Role)
		if err != nil {
			return nil, appErrors.FromStore(err, "organization not found")
		}
		if count >= *limit {
			return nil, appErrors.Clone(appErrors.ErrConflict, "organization member limit reached for this role")
		}
	}

	if req.DepartmentID != nil {
		dept, err := s.departments.FindByID(ctx, *req.DepartmentID)
		if err != nil {
			return nil, appErrors.FromStore(err, "department not found")
		}
		if dept.OrganizationID != organizationID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to the organization")
		}
	}

	membership := &models.OrgMembership{
		UserID:         req.UserID,
		OrganizationID: organizationID,
		DepartmentID:   req.DepartmentID,
		Role:           req.Role,
	}
	if err := s.memberships.Create(ctx, membership); err != nil {
		return nil, appErrors.FromStore(err, "membership not found")
	}
	return membership, nil
}

// UpdatePermissions validates and stores the typed admin toggle structure.
func (s *OrganizationService) UpdatePermissions(ctx context.Context, organizationID string, req UpdatePermissionsRequest, actor models.Actor) (*models.OrgPermissions, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permissions payload")
	}
	if err := s.authorizeOrg(organizationID, actor); err != nil {
		return nil, err
	}
	for userID := range req.Toggles {
		if userID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "toggle keys must be user ids")
		}
	}
	if _, err := s.orgs.FindByID(ctx, organizationID); err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}

	perms := models.OrgPermissions{OrganizationID: organizationID, Toggles: req.Toggles}
	if err := s.orgs.SetPermissions(ctx, organizationID, perms); err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	return &perms, nil
}

// Permissions returns the organization's typed toggle structure.
func (s *OrganizationService) Permissions(ctx context.Context, organizationID string) (*models.OrgPermissions, error) {
	perms, err := s.orgs.GetPermissions(ctx, organizationID)
	if err != nil {
		return nil, appErrors.FromStore(err, "organization not found")
	}
	return perms, nil
}

func (s *OrganizationService) authorizeOrg(organizationID string, actor models.Actor) error {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleOrgAdmin:
		if actor.OrganizationID != organizationID {
			return appErrors.Clone(appErrors.ErrForbidden, "organization admins may only manage their own organization")
		}
		return nil
	default:
		return appErrors.ErrForbidden
	}
}

func roleLimit(org *models.Organization, role models.UserRole) *int {
	switch role {
	case models.RoleStudent:
		return org.StudentLimit
	case models.RoleInstructor:
		return org.InstructorLimit
	case models.RoleOrgAdmin:
		return org.AdminLimit
	}
	return nil
}
