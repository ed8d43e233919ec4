package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
)

func TestParseMonthLabel(t *testing.T) {
	start, err := ParseMonthLabel("Aug 2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), start)

	start, err = ParseMonthLabel("  Feb 2024 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestParseMonthLabelRejectsGarbage(t *testing.T) {
	for _, label := range []string{"", "August 2025", "2025-08", "Aug", "13 2025"} {
		_, err := ParseMonthLabel(label)
		require.Error(t, err, label)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrMonthLabel.Code, appErr.Code, label)
	}
}

func TestMonthBoundsLeapYear(t *testing.T) {
	first, last := MonthBounds(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, first.Day())
	assert.Equal(t, 29, last.Day())

	_, last = MonthBounds(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 28, last.Day())
}

func TestResolveDatesOverrideWinsVerbatim(t *testing.T) {
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	override := []string{"2025-08-12", "2025-08-05", "2025-08-05"}

	dates, source := ResolveDates(monthStart, override, []string{"2025-08-01"})

	assert.Equal(t, models.DateSourceOverride, source)
	assert.Equal(t, override, dates, "override list passes through untouched")
}

func TestResolveDatesPersistedSortedAndDeduped(t *testing.T) {
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	persisted := []string{"2025-08-12", "2025-08-05", "2025-08-05", "2025-09-01", "not-a-date"}

	dates, source := ResolveDates(monthStart, nil, persisted)

	assert.Equal(t, models.DateSourceSchedule, source)
	assert.Equal(t, []string{"2025-08-05", "2025-08-12"}, dates)
}

func TestResolveDatesFullMonthFallback(t *testing.T) {
	monthStart := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	dates, source := ResolveDates(monthStart, nil, nil)

	require.Equal(t, models.DateSourceFullMonth, source)
	require.Len(t, dates, 29)
	assert.Equal(t, "2024-02-01", dates[0])
	assert.Equal(t, "2024-02-29", dates[28])

	dates, _ = ResolveDates(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), nil, nil)
	assert.Len(t, dates, 31)
}

func TestResolveDatesPersistedOutsideMonthFallsThrough(t *testing.T) {
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	dates, source := ResolveDates(monthStart, nil, []string{"2025-07-30", "2025-09-02"})

	assert.Equal(t, models.DateSourceFullMonth, source)
	assert.Len(t, dates, 31)
}
