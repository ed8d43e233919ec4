package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutordesk/tutordesk-api/internal/service"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/response"
)

// ScheduleHandler exposes lesson schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Month godoc
// @Summary List schedule rows for a class month
// @Tags Schedule
// @Produce json
// @Param id path string true "Class ID"
// @Param month query string true "Month label, e.g. Aug 2025"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/schedule [get]
func (h *ScheduleHandler) Month(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month query parameter is required"))
		return
	}
	slots, err := h.service.MonthSchedule(c.Request.Context(), id, c.Param("id"), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Replace godoc
// @Summary Replace the schedule rows of a class for one month
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ReplaceMonthScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/schedule [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.ReplaceMonthScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.service.ReplaceMonthSchedule(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
