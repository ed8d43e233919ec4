package models

import "time"

// PaymentStatus tracks where a student stands on billing.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
	PaymentStatusUnset   PaymentStatus = "UNSET"
)

// Valid returns true when the status is a supported value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPending, PaymentStatusOverdue, PaymentStatusUnset:
		return true
	default:
		return false
	}
}

// Student represents a learner managed by a tutor.
type Student struct {
	ID                string        `db:"id" json:"id"`
	TutorID           string        `db:"tutor_id" json:"-"`
	FullName          string        `db:"full_name" json:"full_name"`
	Email             *string       `db:"email" json:"email,omitempty"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"payment_status"`
	LastPaymentDate   *time.Time    `db:"last_payment_date" json:"last_payment_date,omitempty"`
	OutstandingAmount float64       `db:"outstanding_amount" json:"outstanding_amount"`
	Active            bool          `db:"active" json:"active"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search        string
	PaymentStatus *PaymentStatus
	Active        *bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
