package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

// AttendanceRepository persists presence marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListRange returns the entries for a class within the date range.
func (r *AttendanceRepository) ListRange(ctx context.Context, tutorID, classID string, from, to time.Time) ([]models.AttendanceEntry, error) {
	const query = `SELECT ae.id, ae.class_id, ae.student_id, ae.date, ae.present, ae.created_at, ae.updated_at
FROM attendance_entries ae
JOIN classes c ON c.id = ae.class_id
WHERE c.tutor_id = $1 AND ae.class_id = $2 AND ae.date >= $3 AND ae.date <= $4
ORDER BY ae.date ASC, ae.student_id ASC`
	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, query, tutorID, classID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance entries: %w", err)
	}
	return entries, nil
}

// UpsertSheet writes a full sheet in one transaction and reports how many
// rows actually changed. Rows whose stored presence already matches the
// incoming value do not count; the caller surfaces any mismatch between
// rows sent and rows updated as-is.
func (r *AttendanceRepository) UpsertSheet(ctx context.Context, entries []models.AttendanceEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attendance save: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance_entries (id, class_id, student_id, date, present, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, date)
DO UPDATE SET present = EXCLUDED.present, class_id = EXCLUDED.class_id, updated_at = EXCLUDED.updated_at
WHERE attendance_entries.present IS DISTINCT FROM EXCLUDED.present`
	now := time.Now().UTC()
	updated := 0
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		res, err := tx.ExecContext(ctx, query, entry.ID, entry.ClassID, entry.StudentID, entry.Date, entry.Present, entry.CreatedAt, entry.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert attendance entry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("attendance rows affected: %w", err)
		}
		updated += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attendance save: %w", err)
	}
	committed = true
	return updated, nil
}

// CountPresent counts attended sessions for a student in a class and range.
func (r *AttendanceRepository) CountPresent(ctx context.Context, tutorID, classID, studentID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_entries ae
JOIN classes c ON c.id = ae.class_id
WHERE c.tutor_id = $1 AND ae.class_id = $2 AND ae.student_id = $3 AND ae.present AND ae.date >= $4 AND ae.date <= $5`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tutorID, classID, studentID, from, to); err != nil {
		return 0, fmt.Errorf("count attended sessions: %w", err)
	}
	return count, nil
}
