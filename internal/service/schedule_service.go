package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

type scheduleStore interface {
	LessonDates(ctx context.Context, tutorID, classID string, from, to time.Time) ([]time.Time, error)
	EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error)
	ListSlots(ctx context.Context, tutorID, classID string, from, to time.Time) ([]models.LessonSlot, error)
	ReplaceMonth(ctx context.Context, classID string, from, to time.Time, slots []models.LessonSlot) error
}

type classFinder interface {
	FindByID(ctx context.Context, tutorID, id string) (*models.Class, error)
}

type dateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ScheduleService resolves lesson dates for a class and month and manages the
// schedule rows they come from. Resolved lists are mirrored into Redis so a
// later lookup can survive a database outage with the last known dates.
type ScheduleService struct {
	repo     scheduleStore
	classes  classFinder
	cache    dateCache
	cacheTTL time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleStore, classes classFinder, cache dateCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		repo:     repo,
		classes:  classes,
		cache:    cache,
		cacheTTL: cacheTTL,
		validate: validate,
		logger:   logger,
	}
}

func fallbackCacheKey(classID, monthLabel string) string {
	return classID + ":" + monthLabel
}

// ResolveForMonth returns the grid dates for a class and month. An explicit
// override wins verbatim. Otherwise the persisted schedule is consulted; when
// that lookup fails or comes back empty, the cached last-known list is used
// before falling back to every day of the month.
func (s *ScheduleService) ResolveForMonth(ctx context.Context, tutorID, classID, monthLabel string, override []string) ([]string, models.DateSource, error) {
	monthStart, err := ParseMonthLabel(monthLabel)
	if err != nil {
		return nil, "", err
	}
	if len(override) > 0 {
		dates, source := ResolveDates(monthStart, override, nil)
		return dates, source, nil
	}

	first, last := MonthBounds(monthStart)
	persisted, err := s.repo.LessonDates(ctx, tutorID, classID, first, last)
	if err != nil {
		s.logger.Warn("lesson date lookup failed, trying fallback cache",
			zap.String("class_id", classID),
			zap.String("month", monthLabel),
			zap.Error(err))
		return s.resolveFromFallback(ctx, monthStart, classID, monthLabel)
	}

	iso := make([]string, 0, len(persisted))
	for _, d := range persisted {
		iso = append(iso, d.UTC().Format(isoDateLayout))
	}
	dates, source := ResolveDates(monthStart, nil, iso)
	if source == models.DateSourceFullMonth {
		return s.resolveFromFallback(ctx, monthStart, classID, monthLabel)
	}
	return dates, source, nil
}

// resolveFromFallback tries the cached last-known dates and settles on the
// full month when nothing usable is cached.
func (s *ScheduleService) resolveFromFallback(ctx context.Context, monthStart time.Time, classID, monthLabel string) ([]string, models.DateSource, error) {
	var cached []string
	err := s.cache.Get(ctx, fallbackCacheKey(classID, monthLabel), &cached)
	if err == nil {
		if inBounds := clampToMonth(monthStart, cached); len(inBounds) > 0 {
			return inBounds, models.DateSourceCache, nil
		}
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("fallback cache read failed",
			zap.String("class_id", classID),
			zap.String("month", monthLabel),
			zap.Error(err))
	}
	return FullMonthDates(monthStart), models.DateSourceFullMonth, nil
}

// RememberResolvedDates mirrors a resolved list into the fallback cache.
// Best effort; a cache failure is logged and swallowed.
func (s *ScheduleService) RememberResolvedDates(ctx context.Context, classID, monthLabel string, dates []string) {
	if len(dates) == 0 {
		return
	}
	if err := s.cache.Set(ctx, fallbackCacheKey(classID, monthLabel), dates, s.cacheTTL); err != nil {
		s.logger.Warn("fallback cache write failed",
			zap.String("class_id", classID),
			zap.String("month", monthLabel),
			zap.Error(err))
	}
}

// EnrolledStudentIDs returns the students with at least one slot in the class.
func (s *ScheduleService) EnrolledStudentIDs(ctx context.Context, tutorID, classID string) ([]string, error) {
	return s.repo.EnrolledStudentIDs(ctx, tutorID, classID)
}

// MonthSchedule lists the schedule rows of a class for one month.
func (s *ScheduleService) MonthSchedule(ctx context.Context, tutorID, classID, monthLabel string) ([]models.LessonSlot, error) {
	monthStart, err := ParseMonthLabel(monthLabel)
	if err != nil {
		return nil, err
	}
	if _, err := s.findClass(ctx, tutorID, classID); err != nil {
		return nil, err
	}
	first, last := MonthBounds(monthStart)
	slots, err := s.repo.ListSlots(ctx, tutorID, classID, first, last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return slots, nil
}

// ScheduleSlotInput is one requested schedule row.
type ScheduleSlotInput struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
}

// ReplaceMonthScheduleRequest swaps a class's schedule for one month.
type ReplaceMonthScheduleRequest struct {
	Month string              `json:"month" validate:"required"`
	Slots []ScheduleSlotInput `json:"slots" validate:"dive"`
}

// ReplaceMonthSchedule atomically replaces the schedule rows of a class
// within the month and invalidates the fallback cache for it.
func (s *ScheduleService) ReplaceMonthSchedule(ctx context.Context, tutorID, classID string, req ReplaceMonthScheduleRequest) ([]models.LessonSlot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	monthStart, err := ParseMonthLabel(req.Month)
	if err != nil {
		return nil, err
	}
	if _, err := s.findClass(ctx, tutorID, classID); err != nil {
		return nil, err
	}

	first, last := MonthBounds(monthStart)
	slots := make([]models.LessonSlot, 0, len(req.Slots))
	for _, in := range req.Slots {
		day, err := time.Parse(isoDateLayout, in.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid schedule date %q, expected YYYY-MM-DD", in.Date))
		}
		if day.Before(first) || day.After(last) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule date %q is outside %s", in.Date, req.Month))
		}
		slots = append(slots, models.LessonSlot{
			ClassID:   classID,
			StudentID: in.StudentID,
			Date:      day,
		})
	}

	if err := s.repo.ReplaceMonth(ctx, classID, first, last, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedule")
	}

	if err := s.cache.Delete(ctx, fallbackCacheKey(classID, req.Month)); err != nil {
		s.logger.Warn("fallback cache invalidation failed",
			zap.String("class_id", classID),
			zap.String("month", req.Month),
			zap.Error(err))
	}

	s.logger.Info("schedule replaced",
		zap.String("class_id", classID),
		zap.String("month", req.Month),
		zap.Int("slots", len(slots)))
	return slots, nil
}

func (s *ScheduleService) findClass(ctx context.Context, tutorID, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, tutorID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}
