package domain

import (
	"time"

	"github.com/google/uuid"
)

// BirthdayRecord is a person whose birthday is tracked.
// Only the month and day of DateOfBirth take part in reminder matching;
// the year is kept for display.
type BirthdayRecord struct {
	ID   uuid.UUID
	Name string

	DateOfBirth time.Time // date only, midnight UTC

	CreatedAt time.Time
}

// DateLayout is the wire and display layout for dates of birth.
const DateLayout = "2006-01-02"

// NewDate returns the date-only value used for DateOfBirth.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// YearUnknown is stored as the year of a DateOfBirth imported without one.
// Year 0 is a leap year, so Feb 29 survives.
const YearUnknown = 0

// AgeOn returns the age reached on date, or 0 when the birth year is unknown.
func (r BirthdayRecord) AgeOn(date time.Time) int {
	born := r.DateOfBirth.Year()
	if r.DateOfBirth.IsZero() || born == YearUnknown {
		return 0
	}
	return date.Year() - born
}
