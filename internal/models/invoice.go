package models

import "time"

// InvoiceStatus tracks the lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Valid returns true when the status is a supported value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	default:
		return false
	}
}

// Invoice bills a student for the sessions attended in one month.
type Invoice struct {
	ID         string        `db:"id" json:"id"`
	TutorID    string        `db:"tutor_id" json:"-"`
	StudentID  string        `db:"student_id" json:"student_id"`
	ClassID    string        `db:"class_id" json:"class_id"`
	MonthLabel string        `db:"month_label" json:"month_label"`
	Sessions   int           `db:"sessions" json:"sessions"`
	HourlyRate float64       `db:"hourly_rate" json:"hourly_rate"`
	Amount     float64       `db:"amount" json:"amount"`
	Status     InvoiceStatus `db:"status" json:"status"`
	IssuedAt   time.Time     `db:"issued_at" json:"issued_at"`
	PaidAt     *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
}

// InvoiceDetail extends an invoice with student context for listings.
type InvoiceDetail struct {
	Invoice
	StudentName string `db:"student_name" json:"student_name"`
}

// InvoiceFilter scopes invoice listings.
type InvoiceFilter struct {
	StudentID  string
	ClassID    string
	MonthLabel string
	Status     *InvoiceStatus
	Page       int
	PageSize   int
}

// Payment records money received against an invoice.
type Payment struct {
	ID        string    `db:"id" json:"id"`
	InvoiceID string    `db:"invoice_id" json:"invoice_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Method    string    `db:"method" json:"method"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	PaidAt    time.Time `db:"paid_at" json:"paid_at"`
}
