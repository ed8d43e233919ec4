package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryListRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "student_id", "date", "present", "created_at", "updated_at"}).
		AddRow("entry-1", "class-1", "student-1", time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ae.id, ae.class_id, ae.student_id, ae.date, ae.present")).
		WithArgs("tutor-1", "class-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	entries, err := repo.ListRange(context.Background(), "tutor-1", "class-1",
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Present)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertSheetCountsChangedRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	entries := []models.AttendanceEntry{
		{ClassID: "class-1", StudentID: "student-1", Date: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), Present: true},
		{ClassID: "class-1", StudentID: "student-1", Date: time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC), Present: false},
	}

	mock.ExpectBegin()
	// The first row changes a stored value, the second is a no-op thanks to
	// the IS DISTINCT FROM guard.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	updated, err := repo.UpsertSheet(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertSheetEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	updated, err := repo.UpsertSheet(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountPresent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_entries")).
		WithArgs("tutor-1", "class-1", "student-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	count, err := repo.CountPresent(context.Background(), "tutor-1", "class-1", "student-1",
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 6, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
