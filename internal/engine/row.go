package engine

import (
	"time"

	"github.com/google/uuid"
)

// SpecialDayRow is the ephemeral projection row unifying holiday, observance,
// birthday and memo data for one calendar date. Rows are rebuilt on every
// aggregation pass and never persisted.
type SpecialDayRow struct {
	ID       string    `json:"id"`
	RuleID   uuid.UUID `json:"rule_id,omitempty"`
	Region   string    `json:"region,omitempty"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Category Category  `json:"category"`
	Icon     string    `json:"icon,omitempty"`
	Notes    string    `json:"notes,omitempty"`

	// Custom marks user-created holiday rules (as opposed to seeded ones).
	Custom bool `json:"custom,omitempty"`

	// Memo marks rows sourced from a memo entry.
	Memo bool `json:"memo,omitempty"`

	// Birthday projection extras. OriginalBirthday and TurningAge are always
	// carried; whether the age is shown is the caller's decision (the birth
	// year may have been a leap-safe placeholder).
	OriginalBirthday *time.Time `json:"original_birthday,omitempty"`
	TurningAge       int        `json:"turning_age,omitempty"`
	AgeKnown         bool       `json:"age_known,omitempty"`
}

// Key returns the row's calendar-date identity.
func (r SpecialDayRow) Key() DateKey {
	return KeyOf(r.Date)
}

// DayCard groups all rows of one day of a month for display.
type DayCard struct {
	Date  time.Time       `json:"date"`
	Day   int             `json:"day"`
	Items []SpecialDayRow `json:"items"`
}
