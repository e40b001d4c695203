package api

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

const maxNameLength = 200

// validateCreateBirthday returns the normalized name and date of birth.
func validateCreateBirthday(req CreateBirthdayRequest, today time.Time) (string, time.Time, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", time.Time{}, errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", time.Time{}, errors.Newf("name must be at most %d characters", maxNameLength)
	}

	if req.Date == "" {
		return "", time.Time{}, errors.New("date is required")
	}
	dob, err := domain.ParseDate(req.Date)
	if err != nil {
		return "", time.Time{}, errors.Newf("invalid date %q: use YYYY-MM-DD or --MM-DD", req.Date)
	}

	if dob.Year() != domain.YearUnknown {
		y, m, d := today.Date()
		if dob.After(domain.NewDate(y, m, d)) {
			return "", time.Time{}, errors.New("date must not be in the future")
		}
	}

	return name, dob, nil
}
