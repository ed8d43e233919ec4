package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutordesk/tutordesk-api/internal/models"
	"github.com/tutordesk/tutordesk-api/internal/service"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/response"
)

// InvoiceHandler exposes invoice and payment endpoints.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	payments *service.PaymentService
	metrics  *service.MetricsService
}

// NewInvoiceHandler constructs an invoice handler.
func NewInvoiceHandler(invoices *service.InvoiceService, payments *service.PaymentService, metrics *service.MetricsService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, payments: payments, metrics: metrics}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param class_id query string false "Filter by class"
// @Param month query string false "Filter by month label"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var filter models.InvoiceFilter
	filter.StudentID = c.Query("student_id")
	filter.ClassID = c.Query("class_id")
	filter.MonthLabel = c.Query("month")
	if raw := c.Query("status"); raw != "" {
		status := models.InvoiceStatus(strings.ToUpper(raw))
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown invoice status"))
			return
		}
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	invoices, pagination, err := h.invoices.List(c.Request.Context(), id, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice detail
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Generate godoc
// @Summary Generate an invoice from attended sessions
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.GenerateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Router /invoices [post]
func (h *InvoiceHandler) Generate(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.invoices.Generate(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordInvoiceIssued()
	response.Created(c, invoice)
}

// GenerateBatch godoc
// @Summary Queue invoice generation for every enrolled student
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.BatchGenerateRequest true "Batch payload"
// @Success 202 {object} response.Envelope
// @Router /invoices/batch [post]
func (h *InvoiceHandler) GenerateBatch(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	queued, err := h.invoices.GenerateBatch(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"queued": queued, "month": req.Month})
}

// RecordPayment godoc
// @Summary Record a payment against an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.InvoiceID = c.Param("id")
	payment, err := h.payments.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// ListPayments godoc
// @Summary List payments recorded against an invoice
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, ok := tutorID(c)
	if !ok {
		return
	}
	payments, err := h.payments.ListForInvoice(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}
