package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type dateResolver interface {
	ResolveForMonth(ctx context.Context, tutorID, classID, monthLabel string, override []string) ([]string, models.DateSource, error)
	RememberResolvedDates(ctx context.Context, classID, monthLabel string, dates []string)
	EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error)
}

type attendanceStore interface {
	ListRange(ctx context.Context, tutorID, classID string, from, to time.Time) ([]models.AttendanceEntry, error)
	UpsertSheet(ctx context.Context, entries []models.AttendanceEntry) (int, error)
}

type rosterStore interface {
	List(ctx context.Context, tutorID string, filter models.StudentFilter) ([]models.Student, int, error)
}

// AttendanceService assembles per-month attendance sheets and persists edited
// ones.
type AttendanceService struct {
	repo     attendanceStore
	roster   rosterStore
	resolver dateResolver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceStore, roster rosterStore, resolver dateResolver, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		repo:     repo,
		roster:   roster,
		resolver: resolver,
		validate: validate,
		logger:   logger,
	}
}

// BuildSheet assembles the attendance view for a class and month: resolved
// date columns, the enrolled roster, and explicit presence values for every
// (student, date) cell.
func (s *AttendanceService) BuildSheet(ctx context.Context, tutorID, classID, monthLabel string, override []string) (*models.AttendanceSheet, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}

	dates, source, err := s.resolver.ResolveForMonth(ctx, tutorID, classID, monthLabel, override)
	if err != nil {
		return nil, err
	}
	parsed, err := parseDateColumns(dates)
	if err != nil {
		return nil, err
	}

	active := true
	students, _, err := s.roster.List(ctx, tutorID, models.StudentFilter{Active: &active, PageSize: 200})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	students = s.filterByEnrollment(ctx, tutorID, classID, students)

	grid := NewAttendanceGrid()
	if len(parsed) > 0 {
		from, to := dateRange(parsed)
		entries, err := s.repo.ListRange(ctx, tutorID, classID, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance entries")
		}
		grid.SeedEntries(entries)
	}

	rows := make([]models.AttendanceRow, 0, len(students))
	for _, student := range students {
		rows = append(rows, grid.Row(student, dates))
	}

	return &models.AttendanceSheet{
		ClassID:  classID,
		Month:    monthLabel,
		Dates:    dates,
		Source:   source,
		Students: rows,
	}, nil
}

// filterByEnrollment narrows the roster to students scheduled in the class.
// The filter fails open on purpose: a lookup error or an empty enrollment
// keeps the full roster rather than rendering a blank sheet.
func (s *AttendanceService) filterByEnrollment(ctx context.Context, tutorID, classID string, students []models.Student) []models.Student {
	enrolled, err := s.resolver.EnrolledStudentIDs(ctx, tutorID, classID)
	if err != nil {
		s.logger.Warn("enrollment lookup failed, showing all students",
			zap.String("class_id", classID),
			zap.Error(err))
		return students
	}
	if len(enrolled) == 0 {
		s.logger.Debug("class has no schedule yet, showing all students",
			zap.String("class_id", classID))
		return students
	}
	member := make(map[string]struct{}, len(enrolled))
	for _, id := range enrolled {
		member[id] = struct{}{}
	}
	kept := make([]models.Student, 0, len(students))
	for _, student := range students {
		if _, ok := member[student.ID]; ok {
			kept = append(kept, student)
		}
	}
	return kept
}

// SheetStudentInput is one student's edited row. Days omits nothing the
// caller marked; missing dates read as absent.
type SheetStudentInput struct {
	ID   string          `json:"id" validate:"required"`
	Days map[string]bool `json:"days"`
}

// SaveAttendanceSheetRequest carries a full edited sheet.
type SaveAttendanceSheetRequest struct {
	ClassID  string              `json:"class_id" validate:"required"`
	Month    string              `json:"month" validate:"required"`
	Dates    []string            `json:"dates" validate:"omitempty,dive,required"`
	Students []SheetStudentInput `json:"students" validate:"required,min=1,dive"`
}

// SaveSheet persists an edited sheet. Preconditions fail before any write:
// a class, a parseable month and at least one student are required. Every
// (student, resolved date) pair is written explicitly, absent included, and
// the result reports how many stored rows actually changed.
func (s *AttendanceService) SaveSheet(ctx context.Context, tutorID string, req SaveAttendanceSheetRequest) (*models.AttendanceSaveResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	dates, _, err := s.resolver.ResolveForMonth(ctx, tutorID, req.ClassID, req.Month, req.Dates)
	if err != nil {
		return nil, err
	}
	parsed, err := parseDateColumns(dates)
	if err != nil {
		return nil, err
	}

	entries := make([]models.AttendanceEntry, 0, len(req.Students)*len(dates))
	for _, student := range req.Students {
		for i, date := range dates {
			entries = append(entries, models.AttendanceEntry{
				ClassID:   req.ClassID,
				StudentID: student.ID,
				Date:      parsed[i],
				Present:   student.Days[date],
			})
		}
	}

	updated, err := s.repo.UpsertSheet(ctx, entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	s.resolver.RememberResolvedDates(ctx, req.ClassID, req.Month, dates)

	s.logger.Info("attendance sheet saved",
		zap.String("class_id", req.ClassID),
		zap.String("month", req.Month),
		zap.Int("students", len(req.Students)),
		zap.Int("dates", len(dates)),
		zap.Int("updated", updated))
	return &models.AttendanceSaveResult{Updated: updated, Month: req.Month}, nil
}

// dateRange returns the earliest and latest of a non-empty date list.
// Overrides are taken verbatim and may arrive unsorted.
func dateRange(dates []time.Time) (time.Time, time.Time) {
	from, to := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	return from, to
}

// parseDateColumns parses resolved column dates, rejecting anything that is
// not an ISO calendar date. Resolver output always parses; this guards
// caller-supplied overrides.
func parseDateColumns(dates []string) ([]time.Time, error) {
	parsed := make([]time.Time, len(dates))
	for i, raw := range dates {
		day, err := time.Parse(isoDateLayout, raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
		}
		parsed[i] = day
	}
	return parsed, nil
}
