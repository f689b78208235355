package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type mockAssignmentRepo struct {
	deptRows      map[string]models.CourseAssignment
	orgRows       map[string]models.CourseAssignment
	listed        []models.CourseAssignment
	listedOrg     map[string][]models.CourseAssignment
	lastListedOrg string
	upserted      *models.CourseAssignment
	upsertErr     error
	removedDept   []string
	removedOrg    []string
	cascaded      bool
}

func deptKey(courseID, orgID, deptID string) string { return courseID + "|" + orgID + "|" + deptID }

func orgKey(courseID, orgID string) string { return courseID + "|" + orgID }

func (m *mockAssignmentRepo) FindDepartmentRow(ctx context.Context, courseID, organizationID, departmentID string) (*models.CourseAssignment, error) {
	if a, ok := m.deptRows[deptKey(courseID, organizationID, departmentID)]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) FindOrgWideRow(ctx context.Context, courseID, organizationID string) (*models.CourseAssignment, error) {
	if a, ok := m.orgRows[orgKey(courseID, organizationID)]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListForCourse(ctx context.Context, courseID string) ([]models.CourseAssignment, error) {
	return m.listed, nil
}

func (m *mockAssignmentRepo) ListForOrganization(ctx context.Context, courseID, organizationID string) ([]models.CourseAssignment, error) {
	m.lastListedOrg = organizationID
	return m.listedOrg[orgKey(courseID, organizationID)], nil
}

func (m *mockAssignmentRepo) Upsert(ctx context.Context, assignment *models.CourseAssignment) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	assignment.ID = "a-new"
	m.upserted = assignment
	return nil
}

func (m *mockAssignmentRepo) RemoveDepartment(ctx context.Context, courseID, organizationID, departmentID string) error {
	m.removedDept = append(m.removedDept, deptKey(courseID, organizationID, departmentID))
	return nil
}

func (m *mockAssignmentRepo) RemoveOrgWide(ctx context.Context, courseID, organizationID string, cascade bool) error {
	m.removedOrg = append(m.removedOrg, orgKey(courseID, organizationID))
	m.cascaded = cascade
	return nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockOrgReader struct {
	orgs map[string]*models.Organization
}

func (m *mockOrgReader) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

type mockDeptReader struct {
	depts map[string]*models.Department
}

func (m *mockDeptReader) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.depts[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func newAssignmentFixture(repo *mockAssignmentRepo) *AssignmentService {
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"c1":    {ID: "c1", Status: models.CourseStatusPublished},
		"c-own": {ID: "c-own", OrganizationID: strPtr("o1"), Status: models.CourseStatusPublished},
	}}
	orgs := &mockOrgReader{orgs: map[string]*models.Organization{"o1": {ID: "o1", Active: true}}}
	depts := &mockDeptReader{depts: map[string]*models.Department{"d1": {ID: "d1", OrganizationID: "o1"}}}
	return NewAssignmentService(repo, courses, orgs, depts, validator.New(), zap.NewNop())
}

func TestAssignmentCreateOrUpdate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	assignment, err := svc.CreateOrUpdate(context.Background(), CreateAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
		Capacity:       intPtr(25),
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, "a-new", assignment.ID)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, 25, *repo.upserted.Capacity)
}

func TestAssignmentCreateOrgAdminScopedToOwnOrg(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	_, err := svc.CreateOrUpdate(context.Background(), CreateAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
	}, models.Actor{UserID: "u1", Role: models.RoleOrgAdmin, OrganizationID: "other-org"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateOrgAdminDepartmentOnly(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	_, err := svc.CreateOrUpdate(context.Background(), CreateAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o1",
	}, models.Actor{UserID: "u1", Role: models.RoleOrgAdmin, OrganizationID: "o1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateConflictPropagates(t *testing.T) {
	repo := &mockAssignmentRepo{upsertErr: appErrors.Clone(appErrors.ErrConflict, "an organization-wide assignment already exists for this course and organization")}
	svc := newAssignmentFixture(repo)

	_, err := svc.CreateOrUpdate(context.Background(), CreateAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o1",
		DepartmentID:   strPtr("d1"),
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateDepartmentOutsideOrganization(t *testing.T) {
	repo := &mockAssignmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": {ID: "c1"}}}
	orgs := &mockOrgReader{orgs: map[string]*models.Organization{
		"o1": {ID: "o1", Active: true},
		"o2": {ID: "o2", Active: true},
	}}
	depts := &mockDeptReader{depts: map[string]*models.Department{"d1": {ID: "d1", OrganizationID: "o1"}}}
	svc := NewAssignmentService(repo, courses, orgs, depts, validator.New(), zap.NewNop())

	_, err := svc.CreateOrUpdate(context.Background(), CreateAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o2",
		DepartmentID:   strPtr("d1"),
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentResolvePrefersDepartmentRow(t *testing.T) {
	dept := "d1"
	repo := &mockAssignmentRepo{
		deptRows: map[string]models.CourseAssignment{
			deptKey("c1", "o1", "d1"): {ID: "a-dept", CourseID: "c1", OrganizationID: "o1", DepartmentID: &dept, Capacity: intPtr(5)},
		},
		orgRows: map[string]models.CourseAssignment{
			orgKey("c1", "o1"): {ID: "a-org", CourseID: "c1", OrganizationID: "o1", Capacity: intPtr(100)},
		},
	}
	svc := newAssignmentFixture(repo)

	effective, err := svc.Resolve(context.Background(), "c1", "o1", &dept)
	require.NoError(t, err)
	require.NotNil(t, effective)
	assert.Equal(t, "a-dept", effective.ID)
	assert.False(t, effective.Virtual)
}

func TestAssignmentResolveFallsBackToOrgWide(t *testing.T) {
	repo := &mockAssignmentRepo{
		orgRows: map[string]models.CourseAssignment{
			orgKey("c1", "o1"): {ID: "a-org", CourseID: "c1", OrganizationID: "o1", Capacity: intPtr(100)},
		},
	}
	svc := newAssignmentFixture(repo)

	dept := "d1"
	effective, err := svc.Resolve(context.Background(), "c1", "o1", &dept)
	require.NoError(t, err)
	require.NotNil(t, effective)
	assert.Equal(t, "a-org", effective.ID)
}

func TestAssignmentResolveVirtualForOwningOrganization(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	effective, err := svc.Resolve(context.Background(), "c-own", "o1", nil)
	require.NoError(t, err)
	require.NotNil(t, effective)
	assert.True(t, effective.Virtual)
	assert.Nil(t, effective.Capacity)
}

func TestAssignmentResolveNilWhenUnassigned(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	effective, err := svc.Resolve(context.Background(), "c1", "o1", nil)
	require.NoError(t, err)
	assert.Nil(t, effective)
}

func TestAssignmentListForCourseGroups(t *testing.T) {
	dept := "d1"
	repo := &mockAssignmentRepo{listed: []models.CourseAssignment{
		{ID: "a-org", CourseID: "c1", OrganizationID: "o1"},
		{ID: "a-dept", CourseID: "c1", OrganizationID: "o2", DepartmentID: &dept},
	}}
	svc := newAssignmentFixture(repo)

	grouped, err := svc.ListForCourse(context.Background(), "c1", models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	require.NotNil(t, grouped[0].OrgWide)
	assert.Equal(t, "a-org", grouped[0].OrgWide.ID)
	require.Len(t, grouped[1].Departments, 1)
	assert.Equal(t, "a-dept", grouped[1].Departments[0].ID)
}

func TestAssignmentListOrgAdminSeesOwnOrganizationOnly(t *testing.T) {
	dept := "d1"
	repo := &mockAssignmentRepo{
		listed: []models.CourseAssignment{
			{ID: "a-other", CourseID: "c1", OrganizationID: "o2"},
		},
		listedOrg: map[string][]models.CourseAssignment{
			orgKey("c1", "o1"): {{ID: "a-dept", CourseID: "c1", OrganizationID: "o1", DepartmentID: &dept}},
		},
	}
	svc := newAssignmentFixture(repo)

	grouped, err := svc.ListForCourse(context.Background(), "c1", models.Actor{UserID: "u1", Role: models.RoleOrgAdmin, OrganizationID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "o1", repo.lastListedOrg)
	require.Len(t, grouped, 1)
	assert.Equal(t, "o1", grouped[0].OrganizationID)
	require.Len(t, grouped[0].Departments, 1)
	assert.Equal(t, "a-dept", grouped[0].Departments[0].ID)
}

func TestAssignmentRemoveOrgWideCascade(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	err := svc.Remove(context.Background(), RemoveAssignmentRequest{
		CourseID:       "c1",
		OrganizationID: "o1",
		Cascade:        true,
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Contains(t, repo.removedOrg, orgKey("c1", "o1"))
	assert.True(t, repo.cascaded)
}
