package hours

import (
	"strconv"
	"strings"
	"time"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
)

// Evaluator answers open-now questions against a listing's structured weekly
// hours. Hours are local civil time, so every evaluation goes through the
// listing's own timezone. Stateless and safe for concurrent use.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Transition is the next boundary at which a listing's open state flips.
type Transition struct {
	At          time.Time `json:"at"`
	BecomesOpen bool      `json:"becomes_open"`
}

// IsOpenAt reports whether the listing is open at the given instant. known is
// false when the listing has no usable hours data or an unloadable timezone;
// such listings are excluded from open-now result sets rather than defaulting
// either way.
func (e *Evaluator) IsOpenAt(l *models.Listing, at time.Time) (open, known bool) {
	if !l.HasHoursData() {
		return false, false
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return false, false
	}

	local := at.Truncate(time.Minute).In(loc)
	minute := local.Hour()*60 + local.Minute()
	weekday := int(local.Weekday())

	// Today's interval.
	if openAt, closeAt, ok := dayInterval(l.Hours[weekday]); ok {
		if closeAt > openAt && minute >= openAt && minute < closeAt {
			return true, true
		}
		// Overnight interval: open through midnight into tomorrow.
		if closeAt < openAt && minute >= openAt {
			return true, true
		}
	}

	// Spillover from yesterday's overnight interval.
	prev := l.Hours[(weekday+6)%7]
	if openAt, closeAt, ok := dayInterval(prev); ok {
		if closeAt < openAt && minute < closeAt {
			return true, true
		}
	}

	return false, true
}

// NextTransition returns the next open/close boundary strictly after the
// given instant, scanning a week ahead. A nil transition with nil error means
// the listing never transitions within that horizon.
func (e *Evaluator) NextTransition(l *models.Listing, at time.Time) (*Transition, error) {
	if !l.HasHoursData() {
		return nil, apperrors.ErrHoursUnknown
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, apperrors.ErrHoursUnknown
	}

	at = at.Truncate(time.Minute)
	local := at.In(loc)

	var best *Transition
	// Start one day back to catch an overnight close from the previous day.
	for i := -1; i <= 7; i++ {
		day := local.AddDate(0, 0, i)
		openAt, closeAt, ok := dayInterval(l.Hours[int(day.Weekday())])
		if !ok {
			continue
		}

		openInstant := atMinute(day, openAt, loc)
		closeInstant := atMinute(day, closeAt, loc)
		if closeAt < openAt {
			// Interval spans midnight: the close lands on the next day.
			closeInstant = closeInstant.AddDate(0, 0, 1)
		}

		for _, cand := range []Transition{
			{At: openInstant, BecomesOpen: true},
			{At: closeInstant, BecomesOpen: false},
		} {
			if !cand.At.After(at) {
				continue
			}
			if best == nil || cand.At.Before(best.At) {
				c := cand
				best = &c
			}
		}
	}
	return best, nil
}

// dayInterval extracts the open/close minutes-of-day for one weekday entry.
// A closed flag wins over any stray open/close values stored for that day.
func dayInterval(d models.DayHours) (openAt, closeAt int, ok bool) {
	if d.Closed || d.Open == nil || d.Close == nil {
		return 0, 0, false
	}
	openAt, err := parseClock(*d.Open)
	if err != nil {
		return 0, 0, false
	}
	closeAt, err = parseClock(*d.Close)
	if err != nil {
		return 0, 0, false
	}
	if openAt == closeAt {
		return 0, 0, false
	}
	return openAt, closeAt, true
}

func atMinute(day time.Time, minuteOfDay int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, loc)
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, strconv.ErrSyntax
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, strconv.ErrRange
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, strconv.ErrRange
	}
	return h*60 + m, nil
}
