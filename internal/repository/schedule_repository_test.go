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

func TestScheduleRepositoryLessonDates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	rows := sqlmock.NewRows([]string{"date"}).
		AddRow(time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)).
		AddRow(time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ls.date FROM lesson_schedule")).
		WithArgs("tutor-1", "class-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	dates, err := repo.LessonDates(context.Background(), "tutor-1", "class-1",
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.Equal(t, 5, dates[0].Day())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryEnrolledStudentIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	rows := sqlmock.NewRows([]string{"student_id"}).
		AddRow("student-1").
		AddRow("student-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ls.student_id FROM lesson_schedule")).
		WithArgs("tutor-1", "class-1").
		WillReturnRows(rows)

	ids, err := repo.EnrolledStudentIDs(context.Background(), "tutor-1", "class-1")
	require.NoError(t, err)
	require.Equal(t, []string{"student-1", "student-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceMonth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lesson_schedule WHERE class_id")).
		WithArgs("class-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_schedule")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	slots := []models.LessonSlot{
		{StudentID: "student-1", Date: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)},
	}
	err := repo.ReplaceMonth(context.Background(), "class-1",
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), slots)
	require.NoError(t, err)
	require.NotEmpty(t, slots[0].ID, "slot ids are assigned on insert")
	require.NoError(t, mock.ExpectationsWereMet())
}
