package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartik-560/lms-backend/internal/service"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
	"github.com/kartik-560/lms-backend/pkg/response"
)

// StatusConfigHandler exposes the enrollment status flow configuration.
type StatusConfigHandler struct {
	statusConfig *service.StatusConfigService
}

// NewStatusConfigHandler constructs StatusConfigHandler.
func NewStatusConfigHandler(statusConfig *service.StatusConfigService) *StatusConfigHandler {
	return &StatusConfigHandler{statusConfig: statusConfig}
}

// Get godoc
// @Summary Get the enrollment status flow
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /configurations/enrollment-status [get]
func (h *StatusConfigHandler) Get(c *gin.Context) {
	flow, err := h.statusConfig.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flow, nil)
}

// Update godoc
// @Summary Replace the enrollment status flow
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body service.UpdateStatusFlowRequest true "Status flow payload"
// @Success 200 {object} response.Envelope
// @Router /configurations/enrollment-status [put]
func (h *StatusConfigHandler) Update(c *gin.Context) {
	var req service.UpdateStatusFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	flow, err := h.statusConfig.Update(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flow, nil)
}
