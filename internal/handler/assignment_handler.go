package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kartik-560/lms-backend/internal/service"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
	"github.com/kartik-560/lms-backend/pkg/response"
)

// AssignmentHandler exposes course assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Create godoc
// @Summary Assign course to an organization or department
// @Tags Assignments
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{courseId}/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.CourseID = c.Param("courseId")

	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignment, err := h.assignments.CreateOrUpdate(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Remove godoc
// @Summary Remove a course assignment
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Param organizationId query string true "Organization ID"
// @Param departmentId query string false "Department ID"
// @Param cascade query bool false "Remove department rows together with the org-wide row"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assignments [delete]
func (h *AssignmentHandler) Remove(c *gin.Context) {
	req := service.RemoveAssignmentRequest{
		CourseID:       c.Param("courseId"),
		OrganizationID: c.Query("organizationId"),
	}
	if deptID := c.Query("departmentId"); deptID != "" {
		req.DepartmentID = &deptID
	}
	if cascade, err := strconv.ParseBool(c.DefaultQuery("cascade", "false")); err == nil {
		req.Cascade = cascade
	}

	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.assignments.Remove(c.Request.Context(), req, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": true}, nil)
}

// List godoc
// @Summary List a course's assignments grouped by organization
// @Tags Assignments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	grouped, err := h.assignments.ListForCourse(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grouped, nil)
}
