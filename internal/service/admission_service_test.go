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
	"github.com/kartik-560/lms-backend/internal/repository"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type stubAdmissionEnrollments struct {
	items map[string]models.Enrollment
}

func (m *stubAdmissionEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubAdmissionEnrollments) FindByIDs(ctx context.Context, ids []string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, id := range ids {
		if e, ok := m.items[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubExecutor struct {
	lastParams repository.TransitionParams
	lastGroups []repository.BulkGroup
	err        error
}

func (m *stubExecutor) Transition(ctx context.Context, p repository.TransitionParams) (*models.Enrollment, error) {
	m.lastParams = p
	if m.err != nil {
		return nil, m.err
	}
	return &models.Enrollment{ID: p.EnrollmentID, Status: p.NextStatus}, nil
}

func (m *stubExecutor) BulkTransition(ctx context.Context, groups []repository.BulkGroup, nextStatus models.EnrollmentStatus, approvedLike []string, stampStarted bool) ([]models.Enrollment, error) {
	m.lastGroups = groups
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Enrollment
	for _, g := range groups {
		for _, e := range g.Enrollments {
			e.Status = nextStatus
			out = append(out, e)
		}
	}
	return out, nil
}

type stubResolver struct {
	result *models.EffectiveAssignment
	err    error
}

func (m *stubResolver) Resolve(ctx context.Context, courseID, organizationID string, departmentID *string) (*models.EffectiveAssignment, error) {
	return m.result, m.err
}

type stubAffiliations struct {
	aff *models.Affiliation
	err error
}

func (m *stubAffiliations) LatestAffiliation(ctx context.Context, userID string) (*models.Affiliation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.aff, nil
}

type stubFlowLoader struct {
	flow models.StatusFlowConfig
}

func (m *stubFlowLoader) Load(ctx context.Context) (models.StatusFlowConfig, error) {
	return m.flow, nil
}

type allowGate struct{}

func (allowGate) Require(ctx context.Context, actor models.Actor, courseID string) error { return nil }

type stubObserver struct {
	decisions []string
}

func (m *stubObserver) ObserveAdmissionDecision(decision string) {
	m.decisions = append(m.decisions, decision)
}

func newAdmissionFixture(enrollments map[string]models.Enrollment, resolver *stubResolver) (*AdmissionService, *stubExecutor, *stubObserver) {
	executor := &stubExecutor{}
	observer := &stubObserver{}
	dept := "d1"
	svc := NewAdmissionService(
		&stubAdmissionEnrollments{items: enrollments},
		executor,
		resolver,
		&stubAffiliations{aff: &models.Affiliation{UserID: "s1", OrganizationID: "o1", DepartmentID: &dept}},
		&stubFlowLoader{flow: models.DefaultStatusFlowConfig()},
		allowGate{},
		observer,
		3,
		validator.New(),
		zap.NewNop(),
	)
	return svc, executor, observer
}

func deptAssignment(capacity int) *models.EffectiveAssignment {
	dept := "d1"
	return &models.EffectiveAssignment{
		CourseAssignment: models.CourseAssignment{
			ID:             "a1",
			CourseID:       "c1",
			OrganizationID: "o1",
			DepartmentID:   &dept,
			Capacity:       &capacity,
		},
	}
}

func TestAdmissionTransitionBuildsReservationScope(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending}}
	svc, executor, observer := newAdmissionFixture(enrollments, &stubResolver{result: deptAssignment(2)})

	updated, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: models.EnrollmentStatusApproved}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, updated.Status)

	require.NotNil(t, executor.lastParams.Scope)
	assert.Equal(t, "a1", executor.lastParams.Scope.AssignmentID)
	require.NotNil(t, executor.lastParams.Scope.Capacity)
	assert.Equal(t, 2, *executor.lastParams.Scope.Capacity)
	require.NotNil(t, executor.lastParams.Scope.DepartmentID)
	assert.Equal(t, "d1", *executor.lastParams.Scope.DepartmentID)
	assert.True(t, executor.lastParams.StampStarted)
	assert.Equal(t, []string{"APPROVED"}, executor.lastParams.ApprovedLike)
	assert.Contains(t, observer.decisions, "admitted")
}

func TestAdmissionTransitionRejectsUnknownStatus(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1"}}
	svc, _, _ := newAdmissionFixture(enrollments, &stubResolver{})

	_, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: "ARCHIVED"}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestAdmissionTransitionNotAssigned(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending}}
	svc, _, observer := newAdmissionFixture(enrollments, &stubResolver{result: nil})

	_, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: models.EnrollmentStatusApproved}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAssigned.Code, appErrors.FromError(err).Code)
	assert.Contains(t, observer.decisions, "not_assigned")
}

func TestAdmissionTransitionVirtualAssignmentUnlimited(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending}}
	virtual := &models.EffectiveAssignment{
		CourseAssignment: models.CourseAssignment{CourseID: "c1", OrganizationID: "o1"},
		Virtual:          true,
	}
	svc, executor, _ := newAdmissionFixture(enrollments, &stubResolver{result: virtual})

	_, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: models.EnrollmentStatusApproved}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	require.NotNil(t, executor.lastParams.Scope)
	assert.Nil(t, executor.lastParams.Scope.Capacity)
}

func TestAdmissionTransitionRejectionSkipsScope(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending}}
	svc, executor, _ := newAdmissionFixture(enrollments, &stubResolver{result: deptAssignment(2)})

	_, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: models.EnrollmentStatusRejected}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Nil(t, executor.lastParams.Scope)
	assert.False(t, executor.lastParams.StampStarted)
}

func TestAdmissionTransitionSurfacesCapacityError(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending}}
	svc, executor, observer := newAdmissionFixture(enrollments, &stubResolver{result: deptAssignment(2)})
	executor.err = appErrors.CapacityExceeded(2, 2, "department d1")

	_, err := svc.Transition(context.Background(), "e1", TransitionRequest{NextStatus: models.EnrollmentStatusApproved}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
	assert.Contains(t, observer.decisions, "capacity_exceeded")
}

func TestAdmissionBulkGroupsByScope(t *testing.T) {
	enrollments := map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending},
		"e2": {ID: "e2", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusPending},
	}
	svc, executor, _ := newAdmissionFixture(enrollments, &stubResolver{result: deptAssignment(5)})

	updated, err := svc.BulkTransition(context.Background(), BulkTransitionRequest{
		EnrollmentIDs: []string{"e1", "e2", "e1"},
		NextStatus:    models.EnrollmentStatusApproved,
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	require.Len(t, executor.lastGroups, 1)
	assert.Len(t, executor.lastGroups[0].Enrollments, 2)
	require.NotNil(t, executor.lastGroups[0].Scope)
	assert.Equal(t, "a1", executor.lastGroups[0].Scope.AssignmentID)
}

func TestAdmissionBulkEnforcesBatchLimit(t *testing.T) {
	svc, _, _ := newAdmissionFixture(nil, &stubResolver{})

	_, err := svc.BulkTransition(context.Background(), BulkTransitionRequest{
		EnrollmentIDs: []string{"e1", "e2", "e3", "e4"},
		NextStatus:    models.EnrollmentStatusApproved,
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdmissionBulkMissingEnrollment(t *testing.T) {
	enrollments := map[string]models.Enrollment{"e1": {ID: "e1", StudentID: "s1", CourseID: "c1"}}
	svc, _, _ := newAdmissionFixture(enrollments, &stubResolver{result: deptAssignment(5)})

	_, err := svc.BulkTransition(context.Background(), BulkTransitionRequest{
		EnrollmentIDs: []string{"e1", "missing"},
		NextStatus:    models.EnrollmentStatusRejected,
	}, models.Actor{UserID: "admin", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
