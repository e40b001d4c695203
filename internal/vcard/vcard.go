// Package vcard extracts birthdays from vCard files.
package vcard

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-vcard"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// Entry is one contact with a usable birthday.
type Entry struct {
	Name        string
	DateOfBirth time.Time
}

// Result of parsing a vCard stream.
type Result struct {
	Entries []Entry
	// Skipped counts cards without a name or a parseable BDAY, and cards
	// the decoder could not read.
	Skipped int
}

// Parse reads every card from r. Malformed cards are skipped; only a read
// error before the first card is returned.
func Parse(r io.Reader) (Result, error) {
	var res Result
	log := slog.Default().With("component", "vcard")
	dec := vcard.NewDecoder(r)

	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(res.Entries) == 0 && res.Skipped == 0 {
				return Result{}, errors.Wrap(err, "decode vcard")
			}
			log.Warn("skipping unreadable card", "error", err)
			res.Skipped++
			// The decoder cannot resync after a syntax error.
			break
		}

		entry, ok := entryFromCard(card)
		if !ok {
			res.Skipped++
			continue
		}
		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

func entryFromCard(card vcard.Card) (Entry, bool) {
	bday := card.Get(vcard.FieldBirthday)
	if bday == nil || bday.Value == "" {
		return Entry{}, false
	}
	dob, err := domain.ParseDate(bday.Value)
	if err != nil {
		slog.Debug("unparseable BDAY", "component", "vcard", "value", bday.Value)
		return Entry{}, false
	}

	name := nameOf(card)
	if name == "" {
		return Entry{}, false
	}
	return Entry{Name: name, DateOfBirth: dob}, true
}

// nameOf prefers FN, then the structured N field.
func nameOf(card vcard.Card) string {
	if fn := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName)); fn != "" {
		return fn
	}
	if n := card.Name(); n != nil {
		parts := []string{n.GivenName, n.AdditionalName, n.FamilyName}
		var kept []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		return strings.Join(kept, " ")
	}
	return ""
}
