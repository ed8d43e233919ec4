package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

// InvoiceRepository handles persistence of invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns the tutor's invoices matching the filter.
func (r *InvoiceRepository) List(ctx context.Context, tutorID string, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error) {
	base := `FROM invoices i
JOIN students s ON s.id = i.student_id`
	where := []string{"i.tutor_id = $1"}
	args := []interface{}{tutorID}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("i.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("i.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.MonthLabel != "" {
		where = append(where, fmt.Sprintf("i.month_label = $%d", len(args)+1))
		args = append(args, filter.MonthLabel)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT i.id, i.tutor_id, i.student_id, i.class_id, i.month_label, i.sessions, i.hourly_rate, i.amount, i.status, i.issued_at, i.paid_at,
        s.full_name AS student_name
        %s WHERE %s ORDER BY i.issued_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var invoices []models.InvoiceDetail
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID returns an invoice owned by the tutor.
func (r *InvoiceRepository) FindByID(ctx context.Context, tutorID, id string) (*models.Invoice, error) {
	const query = `SELECT id, tutor_id, student_id, class_id, month_label, sessions, hourly_rate, amount, status, issued_at, paid_at
FROM invoices WHERE tutor_id = $1 AND id = $2`
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, tutorID, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create persists a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPending
	}
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO invoices (id, tutor_id, student_id, class_id, month_label, sessions, hourly_rate, amount, status, issued_at, paid_at)
VALUES (:id, :tutor_id, :student_id, :class_id, :month_label, :sessions, :hourly_rate, :amount, :status, :issued_at, :paid_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// ExistsForMonth checks whether the student already has an invoice for the
// class and month.
func (r *InvoiceRepository) ExistsForMonth(ctx context.Context, tutorID, studentID, classID, monthLabel string) (bool, error) {
	const query = `SELECT 1 FROM invoices WHERE tutor_id = $1 AND student_id = $2 AND class_id = $3 AND month_label = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tutorID, studentID, classID, monthLabel); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check invoice exists: %w", err)
	}
	return true, nil
}

// UpdateStatus sets the status and paid timestamp of an invoice.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus, paidAt *time.Time) error {
	const query = `UPDATE invoices SET status = $2, paid_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, paidAt); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// OutstandingTotal sums unpaid invoice amounts for a student.
func (r *InvoiceRepository) OutstandingTotal(ctx context.Context, tutorID, studentID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE tutor_id = $1 AND student_id = $2 AND status <> $3`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, tutorID, studentID, models.InvoiceStatusPaid); err != nil {
		return 0, fmt.Errorf("sum outstanding invoices: %w", err)
	}
	return total, nil
}
