package engine

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/store"
)

// ProjectBirthday re-anchors a contact's birthday to targetYear and returns
// the resulting row, or nil when the contact contributes nothing that year:
//   - no birthday stored,
//   - birthday explicitly marked unknown (the stored date is then only a
//     placeholder and must never surface),
//   - the target year precedes a known birth year,
//   - the composed date does not exist in targetYear (Feb 29 outside leap
//     years is omitted rather than rolled to an adjacent day).
//
// TurningAge is always computed from the stored birth year; AgeKnown tells
// the caller whether that year was real or a leap-safe fallback.
func ProjectBirthday(c store.Contact, targetYear int) *SpecialDayRow {
	if c.Birthday == nil || !c.BirthdayKnown {
		return nil
	}

	birth := *c.Birthday
	// Nobody has a birthday before being born. Only applies when the birth
	// year is real; a placeholder year says nothing about the timeline.
	if c.YearKnown && targetYear < birth.Year() {
		return nil
	}

	date, ok := ComposeDate(targetYear, birth.Month(), birth.Day(), birth.Location())
	if !ok {
		return nil
	}

	return &SpecialDayRow{
		ID:               birthdayRowID(c.Name, birth, targetYear),
		Date:             date,
		Title:            c.Name,
		Category:         CategoryMemo,
		OriginalBirthday: &birth,
		TurningAge:       targetYear - birth.Year(),
		AgeKnown:         c.YearKnown,
	}
}

// birthdayRowID derives a stable identifier so rows keep their identity
// across aggregation passes (list widgets rely on this).
func birthdayRowID(name string, birth time.Time, year int) string {
	input := fmt.Sprintf(config.FormatHashInput, name, birth.Format(time.RFC3339), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x-%d", hash[:config.UIDHashLength], year)
}
