package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HolidayRule is a region-scoped recurring-date definition. The only supported
// recurrence is a fixed month/day repeated every year. Bank distinguishes
// statutory holidays (true) from observances (false).
//
// (Region, Month, Day, Bank) is intentionally not unique: several subscribed
// regions may declare the same calendar date.
type HolidayRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"not null"`
	Region     string    `gorm:"index;not null"` // ISO-3166 alpha-2 or a free-form tag
	Bank       bool      `gorm:"not null"`
	Recurrence string    `gorm:"not null"` // config.RecurrenceFixed
	Month      int       `gorm:"not null"`
	Day        int       `gorm:"not null"`
	Icon       string
	Notes      string
	System     bool `gorm:"not null"` // seeded on first run, as opposed to user-created
	Enabled    bool `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// Contact holds the subset of an address-book entry the aggregation cares
// about. BirthdayKnown is an explicit "unknown" sentinel: when false the
// stored date, even if present, never reaches year projections. YearKnown
// tracks whether the birth year was supplied (vCard allows --MM-DD dates).
type Contact struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"not null"`
	VCardUID      string    `gorm:"index"` // deterministic import identity
	Birthday      *time.Time
	BirthdayKnown bool `gorm:"not null"`
	YearKnown     bool `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DebtDirection records who owes whom on a debt memo.
type DebtDirection string

const (
	DebtOwedToMe DebtDirection = "owed_to_me"
	DebtOwedByMe DebtDirection = "owed_by_me"
)

// Memo is a polymorphic journal entry. Features is the single source of truth
// for which optional field groups below are meaningful; there is no stored
// legacy type column (PrimaryFeature derives it).
type Memo struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title    string    `gorm:"not null"`
	Notes    string
	Date     time.Time  `gorm:"index;not null"`
	Features FeatureSet `gorm:"not null"`

	// Expense
	Amount   *float64
	Currency string

	// Mileage
	FromLocation  string
	ToLocation    string
	Distance      *float64
	OdometerStart *float64
	OdometerEnd   *float64
	UseOdometer   bool `gorm:"not null"`

	// Debt
	LinkedContactID *uuid.UUID `gorm:"type:uuid"`
	DebtDirection   *DebtDirection
	DebtSettled     bool `gorm:"not null"`
	DebtSettledAt   *time.Time

	// Trip
	Destination string

	// Event / Countdown
	TargetDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
