package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

// ScheduleRepository persists lesson schedule slots. Lesson dates and
// enrollment are both derived from the same rows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// LessonDates returns the distinct scheduled dates for a class within the
// given range, ascending.
func (r *ScheduleRepository) LessonDates(ctx context.Context, tutorID, classID string, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT DISTINCT ls.date FROM lesson_schedule ls
JOIN classes c ON c.id = ls.class_id
WHERE c.tutor_id = $1 AND ls.class_id = $2 AND ls.date >= $3 AND ls.date <= $4
ORDER BY ls.date ASC`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, tutorID, classID, from, to); err != nil {
		return nil, fmt.Errorf("list lesson dates: %w", err)
	}
	return dates, nil
}

// EnrolledStudentIDs returns the distinct students with at least one slot in
// the class.
func (r *ScheduleRepository) EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error) {
	const query = `SELECT DISTINCT ls.student_id FROM lesson_schedule ls
JOIN classes c ON c.id = ls.class_id
WHERE c.tutor_id = $1 AND ls.class_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tutorID, classID); err != nil {
		return nil, fmt.Errorf("list enrolled student ids: %w", err)
	}
	return ids, nil
}

// ListSlots returns the schedule rows for a class within the range.
func (r *ScheduleRepository) ListSlots(ctx context.Context, tutorID, classID string, from, to time.Time) ([]models.LessonSlot, error) {
	const query = `SELECT ls.id, ls.class_id, ls.student_id, ls.date, ls.created_at FROM lesson_schedule ls
JOIN classes c ON c.id = ls.class_id
WHERE c.tutor_id = $1 AND ls.class_id = $2 AND ls.date >= $3 AND ls.date <= $4
ORDER BY ls.date ASC, ls.student_id ASC`
	var slots []models.LessonSlot
	if err := r.db.SelectContext(ctx, &slots, query, tutorID, classID, from, to); err != nil {
		return nil, fmt.Errorf("list lesson slots: %w", err)
	}
	return slots, nil
}

// ReplaceMonth swaps a class's schedule rows within the range for the
// provided slots in one transaction.
func (r *ScheduleRepository) ReplaceMonth(ctx context.Context, classID string, from, to time.Time, slots []models.LessonSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_schedule WHERE class_id = $1 AND date >= $2 AND date <= $3`, classID, from, to); err != nil {
		return fmt.Errorf("clear schedule range: %w", err)
	}

	const insert = `INSERT INTO lesson_schedule (id, class_id, student_id, date, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (class_id, student_id, date) DO NOTHING`
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx, insert, slot.ID, classID, slot.StudentID, slot.Date, slot.CreatedAt); err != nil {
			return fmt.Errorf("insert lesson slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedule: %w", err)
	}
	committed = true
	return nil
}
