package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/jobs"
)

type mockInvoiceStore struct {
	created     []models.Invoice
	existing    map[string]bool
	outstanding float64
	statuses    map[string]models.InvoiceStatus
	invoice     *models.Invoice
	findErr     error
}

func (m *mockInvoiceStore) List(ctx context.Context, tutorID string, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error) {
	return nil, 0, nil
}

func (m *mockInvoiceStore) FindByID(ctx context.Context, tutorID, id string) (*models.Invoice, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.invoice, nil
}

func (m *mockInvoiceStore) Create(ctx context.Context, invoice *models.Invoice) error {
	invoice.ID = "invoice-1"
	m.created = append(m.created, *invoice)
	return nil
}

func (m *mockInvoiceStore) ExistsForMonth(ctx context.Context, tutorID, studentID, classID, monthLabel string) (bool, error) {
	return m.existing[studentID+"|"+monthLabel], nil
}

func (m *mockInvoiceStore) OutstandingTotal(ctx context.Context, tutorID, studentID string) (float64, error) {
	return m.outstanding, nil
}

func (m *mockInvoiceStore) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus, paidAt *time.Time) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.InvoiceStatus)
	}
	m.statuses[id] = status
	return nil
}

type mockSessionCounter struct {
	count int
	err   error
}

func (m *mockSessionCounter) CountPresent(ctx context.Context, tutorID, classID, studentID string, from, to time.Time) (int, error) {
	return m.count, m.err
}

type mockStudentBilling struct {
	student *models.Student
	findErr error

	billedStatus      models.PaymentStatus
	billedOutstanding float64
	billedLastPayment *time.Time
	billingCalls      int
}

func (m *mockStudentBilling) FindByID(ctx context.Context, tutorID, id string) (*models.Student, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.student, nil
}

func (m *mockStudentBilling) UpdateBilling(ctx context.Context, tutorID, id string, status models.PaymentStatus, lastPayment *time.Time, outstanding float64) error {
	m.billedStatus = status
	m.billedOutstanding = outstanding
	m.billedLastPayment = lastPayment
	m.billingCalls++
	return nil
}

type mockJobQueue struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockJobQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newInvoiceService(store *mockInvoiceStore, counter *mockSessionCounter, classes *mockClassFinder, students *mockStudentBilling, enrollment *mockScheduleStore) *InvoiceService {
	return NewInvoiceService(store, counter, classes, students, enrollment, validator.New(), zap.NewNop())
}

func TestGenerateInvoiceBillsAttendedSessions(t *testing.T) {
	store := &mockInvoiceStore{outstanding: 150}
	counter := &mockSessionCounter{count: 6}
	classes := &mockClassFinder{class: &models.Class{ID: "class-1", HourlyRate: 25}}
	students := &mockStudentBilling{student: &models.Student{ID: "student-1", PaymentStatus: models.PaymentStatusUnset}}
	svc := newInvoiceService(store, counter, classes, students, &mockScheduleStore{})

	invoice, err := svc.Generate(context.Background(), "tutor-1", GenerateInvoiceRequest{
		StudentID: "student-1",
		ClassID:   "class-1",
		Month:     "Aug 2025",
	})

	require.NoError(t, err)
	assert.Equal(t, 6, invoice.Sessions)
	assert.Equal(t, 25.0, invoice.HourlyRate)
	assert.Equal(t, 150.0, invoice.Amount)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)

	require.Equal(t, 1, students.billingCalls)
	assert.Equal(t, models.PaymentStatusPending, students.billedStatus)
	assert.Equal(t, 150.0, students.billedOutstanding)
}

func TestGenerateInvoiceConflictsWhenAlreadyIssued(t *testing.T) {
	store := &mockInvoiceStore{existing: map[string]bool{"student-1|Aug 2025": true}}
	classes := &mockClassFinder{class: &models.Class{ID: "class-1", HourlyRate: 25}}
	students := &mockStudentBilling{student: &models.Student{ID: "student-1"}}
	svc := newInvoiceService(store, &mockSessionCounter{}, classes, students, &mockScheduleStore{})

	_, err := svc.Generate(context.Background(), "tutor-1", GenerateInvoiceRequest{
		StudentID: "student-1",
		ClassID:   "class-1",
		Month:     "Aug 2025",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestGenerateInvoiceRejectsBadMonth(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceStore{}, &mockSessionCounter{}, &mockClassFinder{}, &mockStudentBilling{}, &mockScheduleStore{})

	_, err := svc.Generate(context.Background(), "tutor-1", GenerateInvoiceRequest{
		StudentID: "student-1",
		ClassID:   "class-1",
		Month:     "2025-08",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMonthLabel.Code, appErrors.FromError(err).Code)
}

func TestGenerateBatchQueuesPerEnrolledStudent(t *testing.T) {
	queue := &mockJobQueue{}
	enrollment := &mockScheduleStore{enrolled: []string{"student-1", "student-2", "student-3"}}
	svc := newInvoiceService(&mockInvoiceStore{}, &mockSessionCounter{}, &mockClassFinder{}, &mockStudentBilling{}, enrollment)
	svc.AttachQueue(queue)

	queued, err := svc.GenerateBatch(context.Background(), "tutor-1", BatchGenerateRequest{
		ClassID: "class-1",
		Month:   "Aug 2025",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, queued)
	require.Len(t, queue.enqueued, 3)
	payload := queue.enqueued[0].Payload.(GenerateInvoiceJob)
	assert.Equal(t, "tutor-1", payload.TutorID)
	assert.Equal(t, "Aug 2025", payload.Month)
}

func TestGenerateBatchRejectsUnscheduledClass(t *testing.T) {
	svc := newInvoiceService(&mockInvoiceStore{}, &mockSessionCounter{}, &mockClassFinder{}, &mockStudentBilling{}, &mockScheduleStore{})
	svc.AttachQueue(&mockJobQueue{})

	_, err := svc.GenerateBatch(context.Background(), "tutor-1", BatchGenerateRequest{
		ClassID: "class-1",
		Month:   "Aug 2025",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHandleGenerateJobSkipsExistingInvoice(t *testing.T) {
	store := &mockInvoiceStore{existing: map[string]bool{"student-1|Aug 2025": true}}
	classes := &mockClassFinder{class: &models.Class{ID: "class-1", HourlyRate: 25}}
	students := &mockStudentBilling{student: &models.Student{ID: "student-1"}}
	svc := newInvoiceService(store, &mockSessionCounter{}, classes, students, &mockScheduleStore{})

	err := svc.HandleGenerateJob(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: JobTypeGenerateInvoice,
		Payload: GenerateInvoiceJob{
			TutorID:   "tutor-1",
			StudentID: "student-1",
			ClassID:   "class-1",
			Month:     "Aug 2025",
		},
	})

	assert.NoError(t, err, "conflicts are terminal, not retried")
}
