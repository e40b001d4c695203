// Package cron parses the reminder cadence expression.
package cron

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// DefaultExpression fires once a day at local midnight.
const DefaultExpression = "0 0 * * *"

// ErrNeverFires is returned for expressions that parse but match no date,
// such as "0 0 30 2 *".
var ErrNeverFires = errors.New("cron expression never fires")

type Parser struct {
	parser cron.Parser
}

// NewParser accepts standard 5-field expressions and descriptors such as @daily.
func NewParser() *Parser {
	return &Parser{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Parse returns a Schedule evaluated in timezone. An empty timezone
// means the process's local time zone.
func (p *Parser) Parse(expression string, timezone string) (Schedule, error) {
	sched, err := p.parser.Parse(expression)
	if err != nil {
		return nil, errors.Wrap(err, "parse cron")
	}

	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	s := &schedule{sched: sched, loc: loc}
	if s.Next(time.Now()).IsZero() {
		return nil, errors.Wrapf(ErrNeverFires, "%q", expression)
	}
	return s, nil
}

// LoadLocation resolves a configured timezone name; "" and "Local" map to time.Local.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrap(err, "load timezone")
	}
	return loc, nil
}

// Schedule yields fire times. Next returns the zero time when no fire time
// exists.
type Schedule interface {
	Next(after time.Time) time.Time
	Location() *time.Location
}

type schedule struct {
	sched cron.Schedule
	loc   *time.Location
}

func (s *schedule) Next(after time.Time) time.Time {
	return s.sched.Next(after.In(s.loc))
}

func (s *schedule) Location() *time.Location {
	return s.loc
}
