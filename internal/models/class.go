package models

import "time"

// Class represents a tutoring class owned by a tutor. Enrollment is not
// stored on the class; it is derived from lesson schedule rows.
type Class struct {
	ID         string    `db:"id" json:"id"`
	TutorID    string    `db:"tutor_id" json:"-"`
	Name       string    `db:"name" json:"name"`
	HourlyRate float64   `db:"hourly_rate" json:"hourly_rate"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
