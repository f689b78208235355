package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	"github.com/kartik-560/lms-backend/internal/repository"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type admissionEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Enrollment, error)
}

type admissionExecutor interface {
	Transition(ctx context.Context, p repository.TransitionParams) (*models.Enrollment, error)
	BulkTransition(ctx context.Context, groups []repository.BulkGroup, nextStatus models.EnrollmentStatus, approvedLike []string, stampStarted bool) ([]models.Enrollment, error)
}

type assignmentResolver interface {
	Resolve(ctx context.Context, courseID, organizationID string, departmentID *string) (*models.EffectiveAssignment, error)
}

type statusFlowLoader interface {
	Load(ctx context.Context) (models.StatusFlowConfig, error)
}

type eligibilityGate interface {
	Require(ctx context.Context, actor models.Actor, courseID string) error
}

type admissionObserver interface {
	ObserveAdmissionDecision(decision string)
}

// TransitionRequest changes one enrollment's status.
type TransitionRequest struct {
	NextStatus models.EnrollmentStatus `json:"next_status" validate:"required"`
}

// BulkTransitionRequest changes many enrollments' status, all or nothing.
type BulkTransitionRequest struct {
	EnrollmentIDs []string                `json:"enrollment_ids" validate:"required,min=1,dive,required"`
	NextStatus    models.EnrollmentStatus `json:"next_status" validate:"required"`
}

// AdmissionService is the single place admission decisions are made. The
// state machine is table-driven from the status flow snapshot loaded at the
// start of every operation; approved-like targets resolve the governing
// assignment and reserve a seat atomically, everything else transitions
// directly.
type AdmissionService struct {
	enrollments admissionEnrollmentReader
	executor    admissionExecutor
	resolver    assignmentResolver
	memberships affiliationReader
	statusFlow  statusFlowLoader
	eligibility eligibilityGate
	metrics     admissionObserver
	bulkMax     int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(
	enrollments admissionEnrollmentReader,
	executor admissionExecutor,
	resolver assignmentResolver,
	memberships affiliationReader,
	statusFlow statusFlowLoader,
	eligibility eligibilityGate,
	metrics admissionObserver,
	bulkMax int,
	validate *validator.Validate,
	logger *zap.Logger,
) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bulkMax <= 0 {
		bulkMax = 200
	}
	return &AdmissionService{
		enrollments: enrollments,
		executor:    executor,
		resolver:    resolver,
		memberships: memberships,
		statusFlow:  statusFlow,
		eligibility: eligibility,
		metrics:     metrics,
		bulkMax:     bulkMax,
		validator:   validate,
		logger:      logger,
	}
}

// Transition re-evaluates one enrollment into nextStatus.
func (s *AdmissionService) Transition(ctx context.Context, enrollmentID string, req TransitionRequest, actor models.Actor) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	flow, err := s.statusFlow.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !flow.IsAllowed(req.NextStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("status %q is not part of the configured enrollment flow", req.NextStatus))
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.FromStore(err, "enrollment not found")
	}

	if err := s.eligibility.Require(ctx, actor, enrollment.CourseID); err != nil {
		return nil, err
	}

	params := repository.TransitionParams{
		EnrollmentID: enrollmentID,
		NextStatus:   req.NextStatus,
		ApprovedLike: flow.ApprovedLikeStrings(),
	}
	if flow.IsApprovedLike(req.NextStatus) {
		effective, err := s.effectiveFor(ctx, enrollment)
		if err != nil {
			s.observe("not_assigned")
			return nil, err
		}
		params.Scope = reservationScope(effective)
		params.StampStarted = true
	}

	updated, err := s.executor.Transition(ctx, params)
	if err != nil {
		s.observeError(err)
		return nil, appErrors.FromStore(err, "enrollment not found")
	}
	if params.Scope != nil {
		s.observe("admitted")
	}
	s.logger.Info("enrollment transitioned",
		zap.String("enrollment_id", enrollmentID),
		zap.String("status", string(req.NextStatus)),
		zap.String("actor_id", actor.UserID))
	return updated, nil
}

// BulkTransition applies one status to a batch, validating every group's
// aggregate capacity before committing any write. Any failure leaves the
// whole batch untouched.
func (s *AdmissionService) BulkTransition(ctx context.Context, req BulkTransitionRequest, actor models.Actor) ([]models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk transition payload")
	}
	ids := dedupe(req.EnrollmentIDs)
	if len(ids) > s.bulkMax {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds the maximum of %d enrollments", s.bulkMax))
	}

	flow, err := s.statusFlow.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !flow.IsAllowed(req.NextStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("status %q is not part of the configured enrollment flow", req.NextStatus))
	}

	enrollments, err := s.enrollments.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.FromStore(err, "enrollment not found")
	}
	if len(enrollments) != len(ids) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more enrollments do not exist")
	}

	courses := make(map[string]struct{})
	for _, e := range enrollments {
		courses[e.CourseID] = struct{}{}
	}
	for courseID := range courses {
		if err := s.eligibility.Require(ctx, actor, courseID); err != nil {
			return nil, err
		}
	}

	approvedLike := flow.IsApprovedLike(req.NextStatus)
	groups, err := s.groupByScope(ctx, enrollments, approvedLike)
	if err != nil {
		s.observe("not_assigned")
		return nil, err
	}

	updated, err := s.executor.BulkTransition(ctx, groups, req.NextStatus, flow.ApprovedLikeStrings(), approvedLike)
	if err != nil {
		s.observeError(err)
		return nil, appErrors.FromStore(err, "enrollment not found")
	}
	if approvedLike {
		s.observe("admitted_bulk")
	}
	s.logger.Info("bulk transition applied",
		zap.Int("count", len(updated)),
		zap.String("status", string(req.NextStatus)),
		zap.String("actor_id", actor.UserID))
	return updated, nil
}

// effectiveFor resolves the assignment governing an enrollment through the
// student's latest organization registration.
func (s *AdmissionService) effectiveFor(ctx context.Context, enrollment *models.Enrollment) (*models.EffectiveAssignment, error) {
	affiliation, err := s.memberships.LatestAffiliation(ctx, enrollment.StudentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "student has no organization registration")
	}

	departmentID := enrollment.DepartmentID
	if departmentID == nil {
		departmentID = affiliation.DepartmentID
	}

	effective, err := s.resolver.Resolve(ctx, enrollment.CourseID, affiliation.OrganizationID, departmentID)
	if err != nil {
		return nil, err
	}
	if effective == nil {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "course is not assigned to the student's organization or department")
	}
	return effective, nil
}

// reservationScope translates the effective assignment into the capacity pool
// the executor must reserve against. Virtual and uncapped assignments yield a
// nil capacity, so the executor skips the count.
func reservationScope(effective *models.EffectiveAssignment) *repository.ReservationScope {
	scope := &repository.ReservationScope{
		AssignmentID:   effective.ID,
		CourseID:       effective.CourseID,
		OrganizationID: effective.OrganizationID,
		Description:    effective.ScopeDescription(),
	}
	if effective.Limited() {
		scope.Capacity = effective.Capacity
	}
	if effective.DepartmentScoped() {
		scope.DepartmentID = effective.DepartmentID
	}
	return scope
}

func (s *AdmissionService) groupByScope(ctx context.Context, enrollments []models.Enrollment, approvedLike bool) ([]repository.BulkGroup, error) {
	if !approvedLike {
		return []repository.BulkGroup{{Enrollments: enrollments}}, nil
	}

	groups := make([]repository.BulkGroup, 0)
	index := make(map[string]int)
	for _, e := range enrollments {
		e := e
		effective, err := s.effectiveFor(ctx, &e)
		if err != nil {
			return nil, err
		}
		key := e.CourseID + "|" + effective.ScopeKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, repository.BulkGroup{Scope: reservationScope(effective)})
		}
		groups[i].Enrollments = append(groups[i].Enrollments, e)
	}
	return groups, nil
}

func (s *AdmissionService) observe(decision string) {
	if s.metrics != nil {
		s.metrics.ObserveAdmissionDecision(decision)
	}
}

func (s *AdmissionService) observeError(err error) {
	if s.metrics == nil {
		return
	}
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrCapacityExceeded.Code:
		s.metrics.ObserveAdmissionDecision("capacity_exceeded")
	case appErrors.ErrNotAssigned.Code:
		s.metrics.ObserveAdmissionDecision("not_assigned")
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
