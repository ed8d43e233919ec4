package models

import "time"

// AttendanceEntry is one persisted presence mark. At most one entry exists
// per (student, date); a missing entry means absent, never unknown.
type AttendanceEntry struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRow is one student's line on a sheet: every resolved date is
// present in Days, explicitly true or false.
type AttendanceRow struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Days        map[string]bool `json:"days"`
}

// AttendanceSheet is the assembled view for a class and month.
type AttendanceSheet struct {
	ClassID  string          `json:"class_id"`
	Month    string          `json:"month"`
	Dates    []string        `json:"dates"`
	Source   DateSource      `json:"source"`
	Students []AttendanceRow `json:"students"`
}

// AttendanceSaveResult reports a sheet save outcome.
type AttendanceSaveResult struct {
	Updated int    `json:"updated"`
	Month   string `json:"month"`
}
