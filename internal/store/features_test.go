package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSet_Basics(t *testing.T) {
	s := NewFeatureSet(FeatureExpense, FeatureMileage)

	assert.True(t, s.Has(FeatureExpense))
	assert.True(t, s.Has(FeatureMileage))
	assert.False(t, s.Has(FeatureNote))
	assert.Equal(t, 2, s.Count())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "expense+mileage", s.String())

	var empty FeatureSet
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Count())
}

// TestPrimaryFeature verifies that the derived legacy type is the
// lowest-valued active feature, in declaration order.
func TestPrimaryFeature(t *testing.T) {
	tests := []struct {
		name     string
		features FeatureSet
		want     Feature
	}{
		{"Single feature", NewFeatureSet(FeatureDebt), FeatureDebt},
		{"Note beats everything", NewFeatureSet(FeatureCountdown, FeatureNote, FeatureDebt), FeatureNote},
		{"Expense beats mileage", NewFeatureSet(FeatureMileage, FeatureExpense), FeatureExpense},
		{"Event beats countdown", NewFeatureSet(FeatureCountdown, FeatureEvent), FeatureEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Memo{Features: tt.features}
			assert.Equal(t, tt.want, m.PrimaryFeature())
		})
	}
}

func TestToggleFeature_RefusesLastRemoval(t *testing.T) {
	m := Memo{Features: NewFeatureSet(FeatureNote)}

	err := m.ToggleFeature(FeatureNote, false)
	require.Error(t, err)
	assert.True(t, m.Features.Has(FeatureNote), "Refused toggle must not mutate the set")

	require.NoError(t, m.ToggleFeature(FeatureTrip, true))
	require.NoError(t, m.ToggleFeature(FeatureNote, false))
	assert.Equal(t, FeatureTrip, m.PrimaryFeature())
}

// TestToggleFeature_DisablingDebtClearsFields asserts that no orphaned debt
// linkage survives the toggle.
func TestToggleFeature_DisablingDebtClearsFields(t *testing.T) {
	contactID := uuid.New()
	dir := DebtOwedToMe
	settled := time.Now()

	m := Memo{
		Features:        NewFeatureSet(FeatureNote, FeatureDebt),
		LinkedContactID: &contactID,
		DebtDirection:   &dir,
		DebtSettled:     true,
		DebtSettledAt:   &settled,
	}

	require.NoError(t, m.ToggleFeature(FeatureDebt, false))

	assert.Nil(t, m.LinkedContactID)
	assert.Nil(t, m.DebtDirection)
	assert.False(t, m.DebtSettled)
	assert.Nil(t, m.DebtSettledAt)
	assert.True(t, m.Features.Has(FeatureNote))
}

func TestToggleFeature_EnablingTouchesNothing(t *testing.T) {
	amount := 12.50
	m := Memo{
		Features: NewFeatureSet(FeatureExpense),
		Amount:   &amount,
		Currency: "SEK",
	}

	require.NoError(t, m.ToggleFeature(FeatureTrip, true))

	assert.Equal(t, &amount, m.Amount)
	assert.Equal(t, "SEK", m.Currency)
	assert.True(t, m.Features.Has(FeatureExpense))
	assert.True(t, m.Features.Has(FeatureTrip))
}

// TestMileageModes verifies the odometer/manual exclusivity: switching modes
// clears the other mode's inputs and EffectiveDistance follows the active one.
func TestMileageModes(t *testing.T) {
	var m Memo

	m.SetOdometer(1000, 1250)
	require.NotNil(t, m.EffectiveDistance())
	assert.Equal(t, 250.0, *m.EffectiveDistance())
	assert.True(t, m.UseOdometer)

	m.SetManualDistance(99)
	require.NotNil(t, m.EffectiveDistance())
	assert.Equal(t, 99.0, *m.EffectiveDistance())
	assert.False(t, m.UseOdometer)
	assert.Nil(t, m.OdometerStart, "Manual mode must clear the odometer pair")
	assert.Nil(t, m.OdometerEnd)

	m.SetOdometer(500, 600)
	require.NotNil(t, m.EffectiveDistance())
	assert.Equal(t, 100.0, *m.EffectiveDistance())
}

func TestMemoValidate(t *testing.T) {
	amount := 10.0

	tests := []struct {
		name    string
		memo    Memo
		wantErr bool
	}{
		{
			name:    "Empty feature set",
			memo:    Memo{Title: "x"},
			wantErr: true,
		},
		{
			name:    "Plain note",
			memo:    Memo{Title: "x", Features: NewFeatureSet(FeatureNote)},
			wantErr: false,
		},
		{
			name:    "Expense without amount",
			memo:    Memo{Title: "x", Features: NewFeatureSet(FeatureExpense)},
			wantErr: true,
		},
		{
			name:    "Expense with amount",
			memo:    Memo{Title: "x", Features: NewFeatureSet(FeatureExpense), Amount: &amount},
			wantErr: false,
		},
		{
			name:    "Mileage missing locations",
			memo:    Memo{Title: "x", Features: NewFeatureSet(FeatureMileage)},
			wantErr: true,
		},
		{
			name: "Mileage missing distance",
			memo: Memo{
				Title:        "x",
				Features:     NewFeatureSet(FeatureMileage),
				FromLocation: "Home",
				ToLocation:   "Office",
			},
			wantErr: true,
		},
		{
			name:    "Countdown without target",
			memo:    Memo{Title: "x", Features: NewFeatureSet(FeatureCountdown)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.memo.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoValidate_MileageComplete(t *testing.T) {
	var m Memo
	m.Title = "Commute"
	m.Features = NewFeatureSet(FeatureMileage)
	m.FromLocation = "Home"
	m.ToLocation = "Office"
	m.SetOdometer(1000, 1042)

	assert.NoError(t, m.Validate())

	m.SetManualDistance(42)
	assert.NoError(t, m.Validate())
}
