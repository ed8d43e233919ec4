package service

import (
	"sort"
	"strings"
	"time"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

const (
	monthLabelLayout = "Jan 2006"
	isoDateLayout    = "2006-01-02"
)

// ParseMonthLabel parses labels like "Aug 2025" into the first day of that
// month in UTC.
func ParseMonthLabel(label string) (time.Time, error) {
	t, err := time.Parse(monthLabelLayout, strings.TrimSpace(label))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrMonthLabel.Code, appErrors.ErrMonthLabel.Status, appErrors.ErrMonthLabel.Message)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// MonthBounds returns the first and last calendar day of the month. The last
// day is day zero of the following month, which handles leap years.
func MonthBounds(monthStart time.Time) (time.Time, time.Time) {
	first := time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(monthStart.Year(), monthStart.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return first, last
}

// FullMonthDates enumerates every calendar day of the month as ISO dates.
func FullMonthDates(monthStart time.Time) []string {
	first, last := MonthBounds(monthStart)
	dates := make([]string, 0, last.Day())
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format(isoDateLayout))
	}
	return dates
}

// ResolveDates picks the grid columns for a month by strict priority:
// an explicit override list is used verbatim; otherwise persisted schedule
// dates within the month are sorted and de-duplicated; otherwise every
// calendar day of the month. Pure over its inputs.
func ResolveDates(monthStart time.Time, override, persisted []string) ([]string, models.DateSource) {
	if len(override) > 0 {
		return override, models.DateSourceOverride
	}
	if inBounds := clampToMonth(monthStart, persisted); len(inBounds) > 0 {
		return inBounds, models.DateSourceSchedule
	}
	return FullMonthDates(monthStart), models.DateSourceFullMonth
}

// clampToMonth keeps only parseable ISO dates inside the month, sorted and
// de-duplicated.
func clampToMonth(monthStart time.Time, dates []string) []string {
	first, last := MonthBounds(monthStart)
	seen := make(map[string]struct{}, len(dates))
	kept := make([]string, 0, len(dates))
	for _, raw := range dates {
		day, err := time.Parse(isoDateLayout, raw)
		if err != nil {
			continue
		}
		if day.Before(first) || day.After(last) {
			continue
		}
		iso := day.Format(isoDateLayout)
		if _, ok := seen[iso]; ok {
			continue
		}
		seen[iso] = struct{}{}
		kept = append(kept, iso)
	}
	sort.Strings(kept)
	return kept
}
