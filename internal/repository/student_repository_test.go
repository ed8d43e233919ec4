package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

func TestStudentRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tutor_id", "full_name", "email", "payment_status", "last_payment_date", "outstanding_amount", "active", "created_at", "updated_at"}).
		AddRow("student-1", "tutor-1", "Ana Weir", nil, "PENDING", nil, 150.0, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tutor_id, full_name")).
		WithArgs("tutor-1", "%ana%", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WithArgs("tutor-1", "%ana%", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active := true
	students, total, err := repo.List(context.Background(), "tutor-1", models.StudentFilter{
		Search: "ana",
		Active: &active,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, students, 1)
	require.Equal(t, "Ana Weir", students[0].FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{TutorID: "tutor-1", FullName: "Ben Cho", Active: true}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.Equal(t, models.PaymentStatusUnset, student.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateBilling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	paidAt := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET payment_status")).
		WithArgs("tutor-1", "student-1", models.PaymentStatusPaid, paidAt, 0.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBilling(context.Background(), "tutor-1", "student-1", models.PaymentStatusPaid, &paidAt, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
