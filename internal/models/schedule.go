package models

import "time"

// LessonSlot is one scheduled lesson: a class meets a student on a date.
// A student with at least one slot in a class counts as enrolled in it.
type LessonSlot struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DateSource names the tier that produced a resolved date list.
type DateSource string

const (
	DateSourceOverride  DateSource = "override"
	DateSourceSchedule  DateSource = "schedule"
	DateSourceCache     DateSource = "cache"
	DateSourceFullMonth DateSource = "full_month"
)
