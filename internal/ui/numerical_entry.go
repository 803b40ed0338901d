package ui

import (
	"strings"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"
)

// NumericalEntry is a custom Entry widget that only accepts numeric input.
// It embeds widget.Entry to inherit all standard behavior.
type NumericalEntry struct {
	widget.Entry

	// AllowDecimal additionally accepts one decimal separator, for amount
	// and distance fields.
	AllowDecimal bool
}

// NewNumericalEntry creates an integer-only entry (ports, intervals).
func NewNumericalEntry() *NumericalEntry {
	entry := &NumericalEntry{}
	entry.ExtendBaseWidget(entry)
	return entry
}

// NewDecimalEntry creates an entry accepting decimal numbers (amounts, distances).
func NewDecimalEntry() *NumericalEntry {
	entry := &NumericalEntry{AllowDecimal: true}
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedRune intercepts text input events.
// It filters characters to digits, plus at most one '.' in decimal mode.
func (e *NumericalEntry) TypedRune(r rune) {
	if r >= '0' && r <= '9' {
		e.Entry.TypedRune(r)
		return
	}
	if e.AllowDecimal && r == '.' && !strings.ContainsRune(e.Text, '.') {
		e.Entry.TypedRune(r)
	}
	// Ignore everything else.
	// Note: Shortcuts like Ctrl+V (Paste) are handled by TypedShortcut/TypedKey,
	// so non-numeric data could still be pasted. The Validator handles that case.
}

// Keyboard overrides the default keyboard type.
// This ensures that on mobile devices, a numeric keypad is shown.
func (e *NumericalEntry) Keyboard() mobile.KeyboardType {
	return mobile.NumberKeyboard
}
