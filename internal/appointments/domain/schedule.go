package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the wall-clock format appointments are booked with.
const TimeLayout = "15:04"

// DateLayout is the calendar-date format used on the transport boundary.
const DateLayout = "2006-01-02"

// StartTime combines an appointment's calendar date with its wall-clock
// time into a single instant in the clinic's local timezone.
func StartTime(date time.Time, wallClock string, loc *time.Location) (time.Time, error) {
	clock, err := time.ParseInLocation(TimeLayout, wallClock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment time %q: %w", wallClock, err)
	}

	return time.Date(
		date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0,
		loc,
	), nil
}
