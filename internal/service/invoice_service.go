package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/jobs"
)

type invoiceStore interface {
	List(ctx context.Context, tutorID string, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error)
	FindByID(ctx context.Context, tutorID, id string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	ExistsForMonth(ctx context.Context, tutorID, studentID, classID, monthLabel string) (bool, error)
	OutstandingTotal(ctx context.Context, tutorID, studentID string) (float64, error)
}

type sessionCounter interface {
	CountPresent(ctx context.Context, tutorID, classID, studentID string, from, to time.Time) (int, error)
}

type studentBilling interface {
	FindByID(ctx context.Context, tutorID, id string) (*models.Student, error)
	UpdateBilling(ctx context.Context, tutorID, id string, status models.PaymentStatus, lastPayment *time.Time, outstanding float64) error
}

type enrollmentSource interface {
	EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// JobTypeGenerateInvoice is the queue job type for one invoice generation.
const JobTypeGenerateInvoice = "invoice.generate"

// GenerateInvoiceJob is the payload carried by a queued generation job.
type GenerateInvoiceJob struct {
	TutorID   string
	StudentID string
	ClassID   string
	Month     string
}

// InvoiceService issues invoices from attended sessions. An invoice bills one
// student for one class and month: counted present marks times the class
// hourly rate.
type InvoiceService struct {
	repo       invoiceStore
	attendance sessionCounter
	classes    classFinder
	students   studentBilling
	enrollment enrollmentSource
	queue      jobQueue
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewInvoiceService constructs the service. The batch queue is attached
// separately because its handler needs the service.
func NewInvoiceService(repo invoiceStore, attendance sessionCounter, classes classFinder, students studentBilling, enrollment enrollmentSource, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		repo:       repo,
		attendance: attendance,
		classes:    classes,
		students:   students,
		enrollment: enrollment,
		validate:   validate,
		logger:     logger,
	}
}

// AttachQueue wires the background queue used for batch generation.
func (s *InvoiceService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// List returns the tutor's invoices with pagination metadata.
func (s *InvoiceService) List(ctx context.Context, tutorID string, filter models.InvoiceFilter) ([]models.InvoiceDetail, *models.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, tutorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one invoice owned by the tutor.
func (s *InvoiceService) Get(ctx context.Context, tutorID, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, tutorID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// GenerateInvoiceRequest asks for one student's invoice for a class month.
type GenerateInvoiceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Month     string `json:"month" validate:"required"`
}

// Generate issues an invoice for the attended sessions of one month. At most
// one invoice exists per (student, class, month); a second request conflicts.
func (s *InvoiceService) Generate(ctx context.Context, tutorID string, req GenerateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	monthStart, err := ParseMonthLabel(req.Month)
	if err != nil {
		return nil, err
	}

	class, err := s.classes.FindByID(ctx, tutorID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	student, err := s.students.FindByID(ctx, tutorID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.repo.ExistsForMonth(ctx, tutorID, req.StudentID, req.ClassID, req.Month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing invoices")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice already issued for this student and month")
	}

	first, last := MonthBounds(monthStart)
	sessions, err := s.attendance.CountPresent(ctx, tutorID, req.ClassID, req.StudentID, first, last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attended sessions")
	}

	invoice := &models.Invoice{
		TutorID:    tutorID,
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		MonthLabel: req.Month,
		Sessions:   sessions,
		HourlyRate: class.HourlyRate,
		Amount:     float64(sessions) * class.HourlyRate,
		Status:     models.InvoiceStatusPending,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}

	if err := s.refreshStudentBilling(ctx, tutorID, student); err != nil {
		s.logger.Warn("student billing refresh failed after invoice",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
	}

	s.logger.Info("invoice generated",
		zap.String("invoice_id", invoice.ID),
		zap.String("student_id", req.StudentID),
		zap.String("class_id", req.ClassID),
		zap.String("month", req.Month),
		zap.Int("sessions", sessions),
		zap.Float64("amount", invoice.Amount))
	return invoice, nil
}

// refreshStudentBilling recomputes the summary fields kept on the student row
// from the invoice ledger.
func (s *InvoiceService) refreshStudentBilling(ctx context.Context, tutorID string, student *models.Student) error {
	outstanding, err := s.repo.OutstandingTotal(ctx, tutorID, student.ID)
	if err != nil {
		return err
	}
	status := student.PaymentStatus
	if outstanding > 0 {
		status = models.PaymentStatusPending
	} else if status != models.PaymentStatusUnset {
		status = models.PaymentStatusPaid
	}
	return s.students.UpdateBilling(ctx, tutorID, student.ID, status, student.LastPaymentDate, outstanding)
}

// BatchGenerateRequest asks for invoices for every enrolled student of a
// class for one month.
type BatchGenerateRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Month   string `json:"month" validate:"required"`
}

// GenerateBatch enqueues one generation job per enrolled student and returns
// the number queued. Generation runs on the background workers; students who
// already have the month's invoice are skipped there.
func (s *InvoiceService) GenerateBatch(ctx context.Context, tutorID string, req BatchGenerateRequest) (int, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if _, err := ParseMonthLabel(req.Month); err != nil {
		return 0, err
	}
	if s.queue == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "invoice queue is not running")
	}

	enrolled, err := s.enrollment.EnrolledStudentIDs(ctx, tutorID, req.ClassID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if len(enrolled) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "class has no scheduled students")
	}

	queued := 0
	for _, studentID := range enrolled {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: JobTypeGenerateInvoice,
			Payload: GenerateInvoiceJob{
				TutorID:   tutorID,
				StudentID: studentID,
				ClassID:   req.ClassID,
				Month:     req.Month,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue invoice job",
				zap.String("student_id", studentID),
				zap.Error(err))
			continue
		}
		queued++
	}

	s.logger.Info("invoice batch queued",
		zap.String("class_id", req.ClassID),
		zap.String("month", req.Month),
		zap.Int("queued", queued))
	return queued, nil
}

// HandleGenerateJob is the queue handler for batch generation. Conflicts are
// terminal: an existing invoice means the job already succeeded once.
func (s *InvoiceService) HandleGenerateJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(GenerateInvoiceJob)
	if !ok {
		s.logger.Error("invoice job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.Generate(ctx, payload.TutorID, GenerateInvoiceRequest{
		StudentID: payload.StudentID,
		ClassID:   payload.ClassID,
		Month:     payload.Month,
	})
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrConflict.Code {
			s.logger.Debug("invoice already exists, skipping job",
				zap.String("student_id", payload.StudentID),
				zap.String("month", payload.Month))
			return nil
		}
		return err
	}
	return nil
}
