package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type mockResolver struct {
	dates       []string
	source      models.DateSource
	err         error
	enrolled    []string
	enrolledErr error

	remembered [][]string
}

func (m *mockResolver) ResolveForMonth(ctx context.Context, tutorID, classID, monthLabel string, override []string) ([]string, models.DateSource, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if len(override) > 0 {
		return override, models.DateSourceOverride, nil
	}
	return m.dates, m.source, nil
}

func (m *mockResolver) RememberResolvedDates(ctx context.Context, classID, monthLabel string, dates []string) {
	m.remembered = append(m.remembered, dates)
}

func (m *mockResolver) EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error) {
	return m.enrolled, m.enrolledErr
}

type mockAttendanceStore struct {
	entries   []models.AttendanceEntry
	listErr   error
	upserted  []models.AttendanceEntry
	updated   int
	upsertErr error
}

func (m *mockAttendanceStore) ListRange(ctx context.Context, tutorID, classID string, from, to time.Time) ([]models.AttendanceEntry, error) {
	return m.entries, m.listErr
}

func (m *mockAttendanceStore) UpsertSheet(ctx context.Context, entries []models.AttendanceEntry) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upserted = entries
	return m.updated, nil
}

type mockRoster struct {
	students []models.Student
	err      error
}

func (m *mockRoster) List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error) {
	return m.students, len(m.students), m.err
}

func newAttendanceService(store *mockAttendanceStore, roster *mockRoster, resolver *mockResolver) *AttendanceService {
	return NewAttendanceService(store, roster, resolver, validator.New(), zap.NewNop())
}

func twoStudents() []models.Student {
	return []models.Student{
		{ID: "student-1", FullName: "Ana Weir"},
		{ID: "student-2", FullName: "Ben Cho"},
	}
}

func TestBuildSheetPopulatesEveryCell(t *testing.T) {
	resolver := &mockResolver{
		dates:  []string{"2025-08-05", "2025-08-12"},
		source: models.DateSourceSchedule,
	}
	store := &mockAttendanceStore{entries: []models.AttendanceEntry{
		{StudentID: "student-1", Date: day(2025, time.August, 5), Present: true},
	}}
	svc := newAttendanceService(store, &mockRoster{students: twoStudents()}, resolver)

	sheet, err := svc.BuildSheet(context.Background(), "tutor-1", "class-1", "Aug 2025", nil)

	require.NoError(t, err)
	assert.Equal(t, models.DateSourceSchedule, sheet.Source)
	require.Len(t, sheet.Students, 2)
	for _, row := range sheet.Students {
		assert.Len(t, row.Days, 2, "every resolved date gets an explicit value")
	}
	assert.True(t, sheet.Students[0].Days["2025-08-05"])
	assert.False(t, sheet.Students[0].Days["2025-08-12"])
	assert.False(t, sheet.Students[1].Days["2025-08-05"])
}

func TestBuildSheetFiltersRosterByEnrollment(t *testing.T) {
	resolver := &mockResolver{
		dates:    []string{"2025-08-05"},
		source:   models.DateSourceSchedule,
		enrolled: []string{"student-2"},
	}
	svc := newAttendanceService(&mockAttendanceStore{}, &mockRoster{students: twoStudents()}, resolver)

	sheet, err := svc.BuildSheet(context.Background(), "tutor-1", "class-1", "Aug 2025", nil)

	require.NoError(t, err)
	require.Len(t, sheet.Students, 1)
	assert.Equal(t, "student-2", sheet.Students[0].StudentID)
}

func TestBuildSheetFailsOpenOnEnrollmentError(t *testing.T) {
	resolver := &mockResolver{
		dates:       []string{"2025-08-05"},
		source:      models.DateSourceSchedule,
		enrolledErr: errors.New("db down"),
	}
	svc := newAttendanceService(&mockAttendanceStore{}, &mockRoster{students: twoStudents()}, resolver)

	sheet, err := svc.BuildSheet(context.Background(), "tutor-1", "class-1", "Aug 2025", nil)

	require.NoError(t, err)
	assert.Len(t, sheet.Students, 2, "enrollment errors keep the full roster")
}

func TestBuildSheetShowsAllWhenClassUnscheduled(t *testing.T) {
	resolver := &mockResolver{
		dates:  []string{"2025-08-05"},
		source: models.DateSourceFullMonth,
	}
	svc := newAttendanceService(&mockAttendanceStore{}, &mockRoster{students: twoStudents()}, resolver)

	sheet, err := svc.BuildSheet(context.Background(), "tutor-1", "class-1", "Aug 2025", nil)

	require.NoError(t, err)
	assert.Len(t, sheet.Students, 2, "empty enrollment keeps the full roster")
}

func TestSaveSheetRejectsMissingPreconditions(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := newAttendanceService(store, &mockRoster{}, &mockResolver{})

	cases := []SaveAttendanceSheetRequest{
		{Month: "Aug 2025", Students: []SheetStudentInput{{ID: "student-1"}}},
		{ClassID: "class-1", Students: []SheetStudentInput{{ID: "student-1"}}},
		{ClassID: "class-1", Month: "Aug 2025"},
	}
	for _, req := range cases {
		_, err := svc.SaveSheet(context.Background(), "tutor-1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Nil(t, store.upserted, "nothing is written when preconditions fail")
}

func TestSaveSheetWritesFullGrid(t *testing.T) {
	resolver := &mockResolver{
		dates:  []string{"2025-08-05", "2025-08-12", "2025-08-19"},
		source: models.DateSourceSchedule,
	}
	store := &mockAttendanceStore{updated: 4}
	svc := newAttendanceService(store, &mockRoster{}, resolver)

	result, err := svc.SaveSheet(context.Background(), "tutor-1", SaveAttendanceSheetRequest{
		ClassID: "class-1",
		Month:   "Aug 2025",
		Students: []SheetStudentInput{
			{ID: "student-1", Days: map[string]bool{"2025-08-05": true}},
			{ID: "student-2", Days: map[string]bool{"2025-08-12": true, "2025-08-19": false}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, result.Updated)
	assert.Equal(t, "Aug 2025", result.Month)

	require.Len(t, store.upserted, 6, "students times dates, absences included")
	byKey := make(map[string]bool, len(store.upserted))
	for _, entry := range store.upserted {
		byKey[entry.StudentID+"|"+entry.Date.Format("2006-01-02")] = entry.Present
	}
	assert.True(t, byKey["student-1|2025-08-05"])
	assert.False(t, byKey["student-1|2025-08-12"], "unmarked cells persist as absent")
	assert.True(t, byKey["student-2|2025-08-12"])
	assert.False(t, byKey["student-2|2025-08-19"])

	require.Len(t, resolver.remembered, 1, "resolved dates are mirrored to the fallback cache")
	assert.Equal(t, resolver.dates, resolver.remembered[0])
}

func TestSaveSheetUsesOverrideDatesVerbatim(t *testing.T) {
	resolver := &mockResolver{}
	store := &mockAttendanceStore{}
	svc := newAttendanceService(store, &mockRoster{}, resolver)

	_, err := svc.SaveSheet(context.Background(), "tutor-1", SaveAttendanceSheetRequest{
		ClassID:  "class-1",
		Month:    "Aug 2025",
		Dates:    []string{"2025-08-20", "2025-08-06"},
		Students: []SheetStudentInput{{ID: "student-1", Days: map[string]bool{"2025-08-20": true}}},
	})

	require.NoError(t, err)
	require.Len(t, store.upserted, 2)
	assert.Equal(t, day(2025, time.August, 20), store.upserted[0].Date)
	assert.Equal(t, day(2025, time.August, 6), store.upserted[1].Date)
}

func TestSaveSheetRejectsMalformedOverrideDate(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := newAttendanceService(store, &mockRoster{}, &mockResolver{})

	_, err := svc.SaveSheet(context.Background(), "tutor-1", SaveAttendanceSheetRequest{
		ClassID:  "class-1",
		Month:    "Aug 2025",
		Dates:    []string{"08/20/2025"},
		Students: []SheetStudentInput{{ID: "student-1"}},
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.upserted)
}
