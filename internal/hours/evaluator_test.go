package hours

import (
	"testing"
	"time"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hoursPtr(s string) *string { return &s }

// listingWithHours builds a New York listing open the same interval every day.
func listingWithHours(open, close string) *models.Listing {
	var weekly models.WeeklyHours
	for i := range weekly {
		weekly[i] = models.DayHours{Open: hoursPtr(open), Close: hoursPtr(close)}
	}
	return &models.Listing{ID: "l1", Hours: &weekly, Timezone: "America/New_York"}
}

// nyTime builds an instant from New York wall-clock components.
func nyTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestIsOpenAtDaytimeInterval(t *testing.T) {
	l := listingWithHours("09:00", "17:00")

	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},   // open boundary is inclusive
		{12, 30, true},
		{16, 59, true},
		{17, 0, false}, // close boundary is exclusive
		{23, 0, false},
	}
	e := NewEvaluator()
	for _, tc := range cases {
		open, known := e.IsOpenAt(l, nyTime(t, 2026, time.March, 4, tc.hour, tc.min))
		assert.True(t, known)
		assert.Equal(t, tc.want, open, "at %02d:%02d", tc.hour, tc.min)
	}
}

func TestIsOpenAtOvernightInterval(t *testing.T) {
	// Open 22:00 through 02:00 the next day.
	l := listingWithHours("22:00", "02:00")
	e := NewEvaluator()

	open, known := e.IsOpenAt(l, nyTime(t, 2026, time.March, 4, 23, 59))
	assert.True(t, known)
	assert.True(t, open)

	// Past midnight, still inside yesterday's interval.
	open, known = e.IsOpenAt(l, nyTime(t, 2026, time.March, 5, 1, 0))
	assert.True(t, known)
	assert.True(t, open)

	open, known = e.IsOpenAt(l, nyTime(t, 2026, time.March, 5, 3, 0))
	assert.True(t, known)
	assert.False(t, open)

	open, known = e.IsOpenAt(l, nyTime(t, 2026, time.March, 4, 21, 0))
	assert.True(t, known)
	assert.False(t, open)
}

func TestIsOpenAtClosedDayWins(t *testing.T) {
	l := listingWithHours("09:00", "17:00")
	// Saturday marked closed even though an interval is present.
	l.Hours[time.Saturday] = models.DayHours{
		Open:   hoursPtr("09:00"),
		Close:  hoursPtr("17:00"),
		Closed: true,
	}
	e := NewEvaluator()

	// 2026-03-07 is a Saturday.
	open, known := e.IsOpenAt(l, nyTime(t, 2026, time.March, 7, 12, 0))
	assert.True(t, known)
	assert.False(t, open)

	// The Friday before behaves normally.
	open, known = e.IsOpenAt(l, nyTime(t, 2026, time.March, 6, 12, 0))
	assert.True(t, known)
	assert.True(t, open)
}

func TestIsOpenAtUnknownHours(t *testing.T) {
	e := NewEvaluator()

	_, known := e.IsOpenAt(&models.Listing{ID: "bare", Timezone: "America/New_York"}, time.Now())
	assert.False(t, known)

	l := listingWithHours("09:00", "17:00")
	l.Timezone = "Not/AZone"
	_, known = e.IsOpenAt(l, time.Now())
	assert.False(t, known)

	l = listingWithHours("09:00", "17:00")
	l.Timezone = ""
	_, known = e.IsOpenAt(l, time.Now())
	assert.False(t, known)
}

func TestIsOpenAtRespectsListingTimezone(t *testing.T) {
	l := listingWithHours("09:00", "17:00")
	l.Timezone = "Asia/Jerusalem"
	e := NewEvaluator()

	// Noon in New York is evening in Jerusalem (7 hours ahead in March 2026).
	open, known := e.IsOpenAt(l, nyTime(t, 2026, time.March, 4, 12, 0))
	assert.True(t, known)
	assert.False(t, open)

	open, known = e.IsOpenAt(l, nyTime(t, 2026, time.March, 4, 4, 0))
	assert.True(t, known)
	assert.True(t, open)
}

func TestNextTransition(t *testing.T) {
	l := listingWithHours("09:00", "17:00")
	e := NewEvaluator()

	// Before opening: next boundary is today's open.
	tr, err := e.NextTransition(l, nyTime(t, 2026, time.March, 4, 8, 0))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.True(t, tr.BecomesOpen)
	assert.True(t, tr.At.Equal(nyTime(t, 2026, time.March, 4, 9, 0)))

	// While open: next boundary is today's close.
	tr, err = e.NextTransition(l, nyTime(t, 2026, time.March, 4, 12, 0))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.False(t, tr.BecomesOpen)
	assert.True(t, tr.At.Equal(nyTime(t, 2026, time.March, 4, 17, 0)))
}

func TestNextTransitionOvernightClose(t *testing.T) {
	l := listingWithHours("22:00", "02:00")
	e := NewEvaluator()

	// At 01:00 the venue is inside yesterday's overnight interval; the next
	// boundary is the 02:00 close, not today's 22:00 open.
	tr, err := e.NextTransition(l, nyTime(t, 2026, time.March, 5, 1, 0))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.False(t, tr.BecomesOpen)
	assert.True(t, tr.At.Equal(nyTime(t, 2026, time.March, 5, 2, 0)))
}

func TestNextTransitionUnknownHours(t *testing.T) {
	e := NewEvaluator()
	_, err := e.NextTransition(&models.Listing{ID: "bare"}, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrHoursUnknown)
}
