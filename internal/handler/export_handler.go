package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/tutordesk/tutordesk-api/internal/service"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/response"
)

// ExportHandler exposes attendance sheet export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Render an attendance sheet as CSV or PDF
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.ExportSheetRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /exports/attendance [post]
func (h *ExportHandler) Export(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.ExportSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.ExportSheet(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported file via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, contentType, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(file.Name())))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
