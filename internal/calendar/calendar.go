// Package calendar renders birthday records as an iCalendar feed of yearly
// recurring all-day events.
package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-ical"

	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
)

const (
	ProductID = "-//birthday-reminder//birthdayd//EN"
	uidDomain = "birthday-reminder"

	// Year used for DTSTART when the birth year is unknown; a leap year so
	// Feb 29 is a valid first instance.
	anchorYear = 2000
)

// emptyCalendar is returned when there are no records; some clients reject
// a feed the encoder would otherwise refuse to produce.
const emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ProductID + "\r\nEND:VCALENDAR\r\n"

type Options struct {
	Policy matcher.LeapDayPolicy
	// AlarmDays adds a reminder alarm this many days before each event; 0 disables it.
	AlarmDays int
	Now       time.Time
}

// Render encodes records as a VCALENDAR. Records without a date of birth
// are skipped.
func Render(records []domain.BirthdayRecord, opts Options) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText("X-WR-CALNAME", "Birthdays")

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(opts.Now.UTC())

	for _, rec := range records {
		if rec.DateOfBirth.IsZero() {
			continue
		}
		event := newEvent(rec, opts)
		event.Props.Set(stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return []byte(emptyCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, errors.Wrap(err, "encode calendar")
	}
	return buf.Bytes(), nil
}

func newEvent(rec domain.BirthdayRecord, opts Options) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", rec.ID, uidDomain))

	summary := rec.Name + "'s birthday"
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetText(ical.PropTransparency, "TRANSPARENT")

	dob := rec.DateOfBirth
	year := dob.Year()
	if year == domain.YearUnknown {
		year = anchorYear
	}
	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetDate(time.Date(year, dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC))
	event.Props.Set(start)

	// Set manually: SetText would escape the semicolons.
	rrule := ical.NewProp(ical.PropRecurrenceRule)
	rrule.Value = RecurrenceRule(dob, opts.Policy)
	event.Props.Set(rrule)

	if opts.AlarmDays > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = fmt.Sprintf("-P%dD", opts.AlarmDays)
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)
	}

	return event
}

// RecurrenceRule returns the RRULE that observes dob the same way the
// matcher does under policy.
func RecurrenceRule(dob time.Time, policy matcher.LeapDayPolicy) string {
	if dob.Month() != time.February || dob.Day() != 29 {
		return "FREQ=YEARLY"
	}
	switch policy {
	case matcher.LeapDayMar1:
		// Day 60 is Feb 29 in leap years and Mar 1 otherwise.
		return "FREQ=YEARLY;BYYEARDAY=60"
	case matcher.LeapDayStrict:
		// Yearly Feb 29 recurrences skip non-leap years.
		return "FREQ=YEARLY"
	default:
		return "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=-1"
	}
}
