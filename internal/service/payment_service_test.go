package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type mockPaymentStore struct {
	created []models.Payment
}

func (m *mockPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = "payment-1"
	m.created = append(m.created, *payment)
	return nil
}

func (m *mockPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	return m.created, nil
}

func newPaymentService(payments *mockPaymentStore, invoices *mockInvoiceStore, students *mockStudentBilling) *PaymentService {
	return NewPaymentService(payments, invoices, students, validator.New(), zap.NewNop())
}

func TestRecordPaymentMarksInvoicePaid(t *testing.T) {
	invoices := &mockInvoiceStore{
		invoice: &models.Invoice{
			ID:        "invoice-1",
			StudentID: "student-1",
			Status:    models.InvoiceStatusPending,
			Amount:    150,
		},
	}
	students := &mockStudentBilling{}
	payments := &mockPaymentStore{}
	svc := newPaymentService(payments, invoices, students)

	payment, err := svc.RecordPayment(context.Background(), "tutor-1", RecordPaymentRequest{
		InvoiceID: "invoice-1",
		Amount:    150,
		Method:    "transfer",
	})

	require.NoError(t, err)
	assert.Equal(t, "invoice-1", payment.InvoiceID)
	assert.Equal(t, models.InvoiceStatusPaid, invoices.statuses["invoice-1"])

	require.Equal(t, 1, students.billingCalls)
	assert.Equal(t, models.PaymentStatusPaid, students.billedStatus, "no remaining debt means paid up")
	assert.Equal(t, 0.0, students.billedOutstanding)
	require.NotNil(t, students.billedLastPayment)
	assert.Equal(t, payment.PaidAt, *students.billedLastPayment)
}

func TestRecordPaymentKeepsPendingWhenDebtRemains(t *testing.T) {
	invoices := &mockInvoiceStore{
		invoice: &models.Invoice{
			ID:        "invoice-1",
			StudentID: "student-1",
			Status:    models.InvoiceStatusPending,
		},
		outstanding: 75,
	}
	students := &mockStudentBilling{}
	svc := newPaymentService(&mockPaymentStore{}, invoices, students)

	_, err := svc.RecordPayment(context.Background(), "tutor-1", RecordPaymentRequest{
		InvoiceID: "invoice-1",
		Amount:    50,
		Method:    "cash",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, students.billedStatus)
	assert.Equal(t, 75.0, students.billedOutstanding)
}

func TestRecordPaymentRejectsPaidInvoice(t *testing.T) {
	invoices := &mockInvoiceStore{
		invoice: &models.Invoice{ID: "invoice-1", Status: models.InvoiceStatusPaid},
	}
	payments := &mockPaymentStore{}
	svc := newPaymentService(payments, invoices, &mockStudentBilling{})

	_, err := svc.RecordPayment(context.Background(), "tutor-1", RecordPaymentRequest{
		InvoiceID: "invoice-1",
		Amount:    10,
		Method:    "cash",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, payments.created)
}

func TestRecordPaymentUnknownInvoice(t *testing.T) {
	invoices := &mockInvoiceStore{findErr: sql.ErrNoRows}
	svc := newPaymentService(&mockPaymentStore{}, invoices, &mockStudentBilling{})

	_, err := svc.RecordPayment(context.Background(), "tutor-1", RecordPaymentRequest{
		InvoiceID: "missing",
		Amount:    10,
		Method:    "cash",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
