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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the tutor's students matching the filter.
func (r *StudentRepository) List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error) {
	where := []string{"tutor_id = $1"}
	args := []interface{}{tutorID}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.PaymentStatus != nil && filter.PaymentStatus.Valid() {
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)+1))
		args = append(args, *filter.PaymentStatus)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"full_name":         "full_name",
		"created_at":        "created_at",
		"last_payment_date": "last_payment_date",
	}
	sortColumn := allowedSorts[filter.SortBy]
	if sortColumn == "" {
		sortColumn = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, tutor_id, full_name, email, payment_status, last_payment_date, outstanding_amount, active, created_at, updated_at
FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, whereClause, sortColumn, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListByIDs returns the tutor's students with the given ids, ordered by name.
func (r *StudentRepository) ListByIDs(ctx context.Context, tutorID string, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, tutorID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT id, tutor_id, full_name, email, payment_status, last_payment_date, outstanding_amount, active, created_at, updated_at
FROM students WHERE tutor_id = $1 AND id IN (%s) ORDER BY full_name ASC`, strings.Join(placeholders, ","))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students by ids: %w", err)
	}
	return students, nil
}

// FindByID returns a student owned by the tutor.
func (r *StudentRepository) FindByID(ctx context.Context, tutorID, id string) (*models.Student, error) {
	const query = `SELECT id, tutor_id, full_name, email, payment_status, last_payment_date, outstanding_amount, active, created_at, updated_at
FROM students WHERE tutor_id = $1 AND id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, tutorID, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.PaymentStatus == "" {
		student.PaymentStatus = models.PaymentStatusUnset
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, tutor_id, full_name, email, payment_status, last_payment_date, outstanding_amount, active, created_at, updated_at)
VALUES (:id, :tutor_id, :full_name, :email, :payment_status, :last_payment_date, :outstanding_amount, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies contact fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, email = :email, active = :active, updated_at = :updated_at
WHERE tutor_id = :tutor_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateBilling writes the payment summary fields kept on the student row.
func (r *StudentRepository) UpdateBilling(ctx context.Context, tutorID, id string, status models.PaymentStatus, lastPayment *time.Time, outstanding float64) error {
	const query = `UPDATE students SET payment_status = $3, last_payment_date = $4, outstanding_amount = $5, updated_at = $6
WHERE tutor_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tutorID, id, status, lastPayment, outstanding, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student billing: %w", err)
	}
	return nil
}
