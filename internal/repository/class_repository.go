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

// ClassRepository handles persistence of classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns the tutor's classes matching the filter.
func (r *ClassRepository) List(ctx context.Context, tutorID string, filter models.ClassFilter) ([]models.Class, int, error) {
	where := []string{"tutor_id = $1"}
	args := []interface{}{tutorID}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	sortColumn := allowedSorts[filter.SortBy]
	if sortColumn == "" {
		sortColumn = "name"
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, tutor_id, name, hourly_rate, created_at, updated_at
FROM classes WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, whereClause, sortColumn, order, size, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM classes WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class owned by the tutor.
func (r *ClassRepository) FindByID(ctx context.Context, tutorID, id string) (*models.Class, error) {
	const query = `SELECT id, tutor_id, name, hourly_rate, created_at, updated_at FROM classes WHERE tutor_id = $1 AND id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, tutorID, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, tutor_id, name, hourly_rate, created_at, updated_at)
VALUES (:id, :tutor_id, :name, :hourly_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Delete removes a class owned by the tutor, returning the affected count.
func (r *ClassRepository) Delete(ctx context.Context, tutorID, id string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE tutor_id = $1 AND id = $2`, tutorID, id)
	if err != nil {
		return 0, fmt.Errorf("delete class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete class rows affected: %w", err)
	}
	return int(affected), nil
}
