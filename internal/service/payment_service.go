package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]models.Payment, error)
}

type invoiceLedger interface {
	FindByID(ctx context.Context, tutorID, id string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus, paidAt *time.Time) error
	OutstandingTotal(ctx context.Context, tutorID, studentID string) (float64, error)
}

// PaymentService records money received against invoices and keeps the
// billing summary on the student row in step.
type PaymentService struct {
	repo     paymentStore
	invoices invoiceLedger
	students studentBilling
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentService constructs the service.
func NewPaymentService(repo paymentStore, invoices invoiceLedger, students studentBilling, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:     repo,
		invoices: invoices,
		students: students,
		validate: validate,
		logger:   logger,
	}
}

// RecordPaymentRequest carries one received payment.
type RecordPaymentRequest struct {
	InvoiceID string  `json:"invoice_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required,max=40"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

// RecordPayment stores the payment, marks the invoice paid and refreshes the
// student's payment status, last payment date and outstanding amount.
func (s *PaymentService) RecordPayment(ctx context.Context, tutorID string, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	invoice, err := s.invoices.FindByID(ctx, tutorID, req.InvoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice is already paid")
	}

	payment := &models.Payment{
		InvoiceID: invoice.ID,
		Amount:    req.Amount,
		Method:    req.Method,
		Notes:     req.Notes,
		PaidAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	paidAt := payment.PaidAt
	if err := s.invoices.UpdateStatus(ctx, invoice.ID, models.InvoiceStatusPaid, &paidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark invoice paid")
	}

	outstanding, err := s.invoices.OutstandingTotal(ctx, tutorID, invoice.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute outstanding amount")
	}
	status := models.PaymentStatusPaid
	if outstanding > 0 {
		status = models.PaymentStatusPending
	}
	if err := s.students.UpdateBilling(ctx, tutorID, invoice.StudentID, status, &paidAt, outstanding); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student billing")
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("invoice_id", invoice.ID),
		zap.String("student_id", invoice.StudentID),
		zap.Float64("amount", req.Amount),
		zap.Float64("outstanding", outstanding))
	return payment, nil
}

// ListForInvoice returns the payments against one of the tutor's invoices.
func (s *PaymentService) ListForInvoice(ctx context.Context, tutorID, invoiceID string) ([]models.Payment, error) {
	if _, err := s.invoices.FindByID(ctx, tutorID, invoiceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	payments, err := s.repo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}
