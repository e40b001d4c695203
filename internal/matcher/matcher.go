// Package matcher decides whether a birthday falls exactly N days after a
// reference instant.
//
// Only month and day are compared. The target date is computed with
// calendar arithmetic in the reference instant's location, so month and
// year rollover (Dec 28 + 7 days = Jan 4) and DST transitions are handled
// by time.Date normalisation rather than by adding fixed durations.
//
// Birthdays on February 29 need a rule for non-leap years. The rule is a
// LeapDayPolicy; LeapDayFeb28 is the default.
package matcher

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// DefaultHorizonDays is how far ahead reminders look.
const DefaultHorizonDays = 7

type LeapDayPolicy string

const (
	// LeapDayFeb28 observes Feb 29 birthdays on Feb 28 in non-leap years.
	LeapDayFeb28 LeapDayPolicy = "feb28"
	// LeapDayMar1 observes Feb 29 birthdays on Mar 1 in non-leap years.
	LeapDayMar1 LeapDayPolicy = "mar1"
	// LeapDayStrict only matches Feb 29 birthdays in leap years.
	LeapDayStrict LeapDayPolicy = "strict"
)

var ErrUnknownLeapDayPolicy = errors.New("unknown leap day policy (want feb28, mar1 or strict)")

// ParseLeapDayPolicy accepts the policy names used in configuration.
// The empty string selects LeapDayFeb28.
func ParseLeapDayPolicy(s string) (LeapDayPolicy, error) {
	switch LeapDayPolicy(s) {
	case "":
		return LeapDayFeb28, nil
	case LeapDayFeb28, LeapDayMar1, LeapDayStrict:
		return LeapDayPolicy(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownLeapDayPolicy, "%q", s)
	}
}

// Matcher is a pure value; the zero value uses LeapDayFeb28.
type Matcher struct {
	Policy LeapDayPolicy
}

// New returns a Matcher using the given policy.
func New(policy LeapDayPolicy) Matcher {
	return Matcher{Policy: policy}
}

// Window computes the reminder window for ref.
func Window(ref time.Time, horizonDays int) domain.ReminderWindow {
	y, m, d := ref.Date()
	return domain.ReminderWindow{
		ReferenceInstant: ref,
		HorizonDays:      horizonDays,
		Target:           time.Date(y, m, d+horizonDays, 0, 0, 0, 0, ref.Location()),
	}
}

// Matches reports whether dob falls exactly horizonDays after ref,
// using the default leap day policy.
func Matches(dob, ref time.Time, horizonDays int) bool {
	return Matcher{}.Matches(dob, ref, horizonDays)
}

// Matches reports whether dob falls exactly horizonDays after ref.
func (m Matcher) Matches(dob, ref time.Time, horizonDays int) bool {
	return m.MatchesTarget(dob, Window(ref, horizonDays).Target)
}

// MatchesTarget reports whether the birthday is observed on target's calendar date.
func (m Matcher) MatchesTarget(dob, target time.Time) bool {
	observed, ok := m.Occurrence(dob, target.Year())
	if !ok {
		return false
	}
	return observed.Month() == target.Month() && observed.Day() == target.Day()
}

// Occurrence returns the date (midnight UTC) on which the birthday is
// observed in year. ok is false only under LeapDayStrict for a Feb 29
// birthday in a non-leap year.
func (m Matcher) Occurrence(dob time.Time, year int) (time.Time, bool) {
	month, day := dob.Month(), dob.Day()
	if month == time.February && day == 29 && !IsLeapYear(year) {
		switch m.policy() {
		case LeapDayMar1:
			return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC), true
		case LeapDayStrict:
			return time.Time{}, false
		default:
			return time.Date(year, time.February, 28, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// NextOccurrence returns the first observed birthday on or after the
// calendar date of from, as midnight UTC, and the number of days until it.
func (m Matcher) NextOccurrence(dob, from time.Time) (time.Time, int) {
	y, mo, d := from.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	// Strict Feb 29 birthdays can skip up to eight years (2096 to 2104).
	for year := y; year <= y+8; year++ {
		occ, ok := m.Occurrence(dob, year)
		if ok && !occ.Before(today) {
			return occ, int(occ.Sub(today).Hours() / 24)
		}
	}
	return time.Time{}, -1
}

// PolicyName returns the effective policy.
func (m Matcher) PolicyName() LeapDayPolicy {
	return m.policy()
}

func (m Matcher) policy() LeapDayPolicy {
	if m.Policy == "" {
		return LeapDayFeb28
	}
	return m.Policy
}

// IsLeapYear reports whether year has a February 29 in the Gregorian calendar.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
