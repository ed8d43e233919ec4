package service

import (
	"github.com/tutordesk/tutordesk-api/internal/models"
)

// AttendanceGrid is the transient presence matrix for one class/month view.
// It is a sparse map keyed by (student id, ISO date); missing keys read as
// absent, never unknown. The grid never rejects keys outside the resolved
// date list; it is purely additive state owned by a single view of the data.
type AttendanceGrid struct {
	marks map[string]bool
}

// NewAttendanceGrid returns an empty grid.
func NewAttendanceGrid() *AttendanceGrid {
	return &AttendanceGrid{marks: make(map[string]bool)}
}

func gridKey(studentID, isoDate string) string {
	return studentID + "|" + isoDate
}

// Present reports the presence value for the pair, defaulting to false.
func (g *AttendanceGrid) Present(studentID, isoDate string) bool {
	return g.marks[gridKey(studentID, isoDate)]
}

// Set records an explicit presence value.
func (g *AttendanceGrid) Set(studentID, isoDate string, present bool) {
	g.marks[gridKey(studentID, isoDate)] = present
}

// Toggle flips the presence value for the pair and returns the new value.
// An unset pair reads as absent, so the first toggle marks it present.
func (g *AttendanceGrid) Toggle(studentID, isoDate string) bool {
	key := gridKey(studentID, isoDate)
	next := !g.marks[key]
	g.marks[key] = next
	return next
}

// SeedEntries loads persisted entries into the grid.
func (g *AttendanceGrid) SeedEntries(entries []models.AttendanceEntry) {
	for _, entry := range entries {
		g.Set(entry.StudentID, entry.Date.Format(isoDateLayout), entry.Present)
	}
}

// Row materialises one student's sheet line, populating every resolved date
// explicitly so that absent days are written as false rather than omitted.
func (g *AttendanceGrid) Row(student models.Student, dates []string) models.AttendanceRow {
	days := make(map[string]bool, len(dates))
	for _, date := range dates {
		days[date] = g.Present(student.ID, date)
	}
	return models.AttendanceRow{
		StudentID:   student.ID,
		StudentName: student.FullName,
		Days:        days,
	}
}
