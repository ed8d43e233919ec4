package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutordesk/tutordesk-api/internal/models"
	"github.com/tutordesk/tutordesk-api/internal/service"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/response"
)

type attendanceService interface {
	BuildSheet(ctx context.Context, tutorID, classID, monthLabel string, override []string) (*models.AttendanceSheet, error)
	SaveSheet(ctx context.Context, tutorID string, req service.SaveAttendanceSheetRequest) (*models.AttendanceSaveResult, error)
}

// AttendanceHandler exposes the attendance sheet endpoints.
type AttendanceHandler struct {
	service attendanceService
	metrics *service.MetricsService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, metrics: metrics}
}

// Sheet godoc
// @Summary Build the attendance sheet for a class and month
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param month query string true "Month label, e.g. Aug 2025"
// @Param dates query []string false "Explicit ISO date columns, overrides the schedule"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month query parameter is required"))
		return
	}
	override := c.QueryArray("dates")

	sheet, err := h.service.BuildSheet(c.Request.Context(), id, c.Param("id"), month, override)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Save godoc
// @Summary Save an edited attendance sheet
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SaveAttendanceSheetRequest true "Sheet payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [put]
func (h *AttendanceHandler) Save(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.SaveAttendanceSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.SaveSheet(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSheetSaved(result.Updated)
	response.JSON(c, http.StatusOK, result, nil)
}
