package store

import (
	"errors"
	"strings"

	"github.com/tartampluch/go-daybook/internal/config"
)

// Feature identifies one optional field group of a Memo. The declaration
// order doubles as display priority: the lowest active feature is the memo's
// primary one.
type Feature uint8

const (
	FeatureNote Feature = iota
	FeatureTrip
	FeatureExpense
	FeatureMileage
	FeatureDebt
	FeatureEvent
	FeatureCountdown

	featureCount
)

var featureNames = [featureCount]string{
	"note", "trip", "expense", "mileage", "debt", "event", "countdown",
}

func (f Feature) String() string {
	if int(f) < len(featureNames) {
		return featureNames[f]
	}
	return "unknown"
}

// FeatureSet is a bitset of active features. Features are independently
// combinable: a single memo can be an expense and a mileage log at once.
type FeatureSet uint16

// NewFeatureSet builds a set from individual features.
func NewFeatureSet(features ...Feature) FeatureSet {
	var s FeatureSet
	for _, f := range features {
		s |= 1 << f
	}
	return s
}

// Has reports whether f is active.
func (s FeatureSet) Has(f Feature) bool {
	return s&(1<<f) != 0
}

// Count returns the number of active features.
func (s FeatureSet) Count() int {
	n := 0
	for f := FeatureNote; f < featureCount; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no feature is active. A persisted memo must never
// be in this state.
func (s FeatureSet) IsEmpty() bool {
	return s == 0
}

// Lowest returns the active feature with the smallest value. Undefined for an
// empty set; callers must check IsEmpty first.
func (s FeatureSet) Lowest() Feature {
	for f := FeatureNote; f < featureCount; f++ {
		if s.Has(f) {
			return f
		}
	}
	return FeatureNote
}

func (s FeatureSet) String() string {
	var parts []string
	for f := FeatureNote; f < featureCount; f++ {
		if s.Has(f) {
			parts = append(parts, f.String())
		}
	}
	return strings.Join(parts, "+")
}

// PrimaryFeature is the derived replacement for the historical single-type
// column: the lowest-valued active feature.
func (m *Memo) PrimaryFeature() Feature {
	return m.Features.Lowest()
}

// ToggleFeature enables or disables one feature group.
//
// Disabling the last remaining feature is refused: a memo always belongs to at
// least one category. Disabling the debt feature clears every debt-only field
// so no orphaned linkage survives the toggle. Enabling a feature never touches
// another group's fields.
func (m *Memo) ToggleFeature(f Feature, on bool) error {
	if on {
		m.Features |= 1 << f
		return nil
	}

	next := m.Features &^ (1 << f)
	if next.IsEmpty() {
		return errors.New(config.ErrLastFeature)
	}
	m.Features = next

	if f == FeatureDebt {
		m.LinkedContactID = nil
		m.DebtDirection = nil
		m.DebtSettled = false
		m.DebtSettledAt = nil
	}
	return nil
}

// SetOdometer switches the mileage group into odometer mode. The distance is
// derived from the odometer delta; any manually entered distance is replaced.
func (m *Memo) SetOdometer(start, end float64) {
	m.UseOdometer = true
	m.OdometerStart = &start
	m.OdometerEnd = &end
	d := end - start
	m.Distance = &d
}

// SetManualDistance switches the mileage group into direct-entry mode and
// clears the odometer pair, which is no longer authoritative.
func (m *Memo) SetManualDistance(distance float64) {
	m.UseOdometer = false
	m.OdometerStart = nil
	m.OdometerEnd = nil
	m.Distance = &distance
}

// EffectiveDistance returns the authoritative distance for the active mileage
// mode, or nil when none is available.
func (m *Memo) EffectiveDistance() *float64 {
	if m.UseOdometer {
		if m.OdometerStart == nil || m.OdometerEnd == nil {
			return nil
		}
		d := *m.OdometerEnd - *m.OdometerStart
		return &d
	}
	return m.Distance
}

// Validate runs the per-feature required-field checks that gate saving.
// The first failing group wins; there is no accumulated error list because the
// editor only needs to know whether the save action is allowed.
func (m *Memo) Validate() error {
	if m.Features.IsEmpty() {
		return errors.New(config.ErrEmptyFeatures)
	}
	if m.Features.Has(FeatureExpense) && m.Amount == nil {
		return errors.New(config.ErrAmountRequired)
	}
	if m.Features.Has(FeatureMileage) {
		if m.FromLocation == "" || m.ToLocation == "" {
			return errors.New(config.ErrLocationRequired)
		}
		if m.EffectiveDistance() == nil {
			return errors.New(config.ErrDistanceRequired)
		}
	}
	if m.Features.Has(FeatureCountdown) && m.TargetDate == nil {
		return errors.New(config.ErrTargetRequired)
	}
	return nil
}
