package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

var dateLayouts = []string{
	DateLayout,
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	// vCard truncated dates; time.Parse leaves the year at YearUnknown.
	"--01-02",
	"--0102",
}

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts the date formats seen in API payloads and vCards and
// returns a date-only value. Timestamps keep the calendar date of their own
// offset.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", s)
}

// FormatDate renders a DateOfBirth, using the vCard "--MM-DD" form when the
// year is unknown.
func FormatDate(t time.Time) string {
	if t.Year() == YearUnknown {
		return t.Format("--01-02")
	}
	return t.Format(DateLayout)
}
