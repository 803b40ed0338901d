package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/engine"
	"github.com/tartampluch/go-daybook/internal/store"
	"github.com/zalando/go-keyring"
)

// settingsWidgets holds references to UI elements to simplify data retrieval during save.
type settingsWidgets struct {
	langSelect     *widget.Select
	modeSelect     *widget.Select
	urlEntry       *widget.Entry
	userEntry      *widget.Entry
	passEntry      *widget.Entry
	pathEntry      *widget.Entry
	entryInterval  *NumericalEntry
	entryPort      *NumericalEntry
	checkReminder  *widget.Check
	entryRemValue  *NumericalEntry
	selectRemUnit  *widget.Select
	selectRemDir   *widget.Select
	regionChecks   map[string]*widget.Check
	categoryChecks map[engine.Category]*widget.Check
}

// ShowSettingsWindow displays the configuration dialog allowing users to manage settings.
func (app *DaybookApp) ShowSettingsWindow() {
	if app.Window != nil {
		slog.Debug("Settings window already open, requesting focus", config.LogKeyComponent, config.CompUISet)
		app.Window.RequestFocus()
		return
	}

	slog.Info("Opening settings window", config.LogKeyComponent, config.CompUISet)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinTitle))
	app.Window = w

	sw := &settingsWidgets{}

	// refreshLayout triggers a window resize based on content visibility.
	var refreshLayout func()
	onLayoutChange := func() {
		if refreshLayout != nil {
			refreshLayout()
		}
	}

	// Forward declaration for the save button.
	var btnSave *widget.Button

	// --- 1. Language ---
	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage))

	// --- 2. Source Section ---
	sw.modeSelect = widget.NewSelect([]string{
		app.GetMsg(config.TKeyModeCardDAV),
		app.GetMsg(config.TKeyModeLocal),
	}, nil)

	sw.urlEntry = widget.NewEntry()
	sw.urlEntry.SetText(app.Preferences.String(config.PrefCardDAVURL))
	sw.urlEntry.PlaceHolder = config.PlaceholderURL

	sw.userEntry = widget.NewEntry()
	sw.userEntry.SetText(app.Preferences.String(config.PrefUsername))

	sw.passEntry = widget.NewPasswordEntry()
	// Attempt to pre-fill password from secure storage
	if user := sw.userEntry.Text; user != "" {
		if pwd, err := keyring.Get(config.KeyringService, user); err == nil {
			sw.passEntry.SetText(pwd)
		}
	}

	sw.pathEntry = widget.NewEntry()
	sw.pathEntry.SetText(app.Preferences.String(config.PrefLocalPath))

	sourceCard := app.buildSourceCard(w, sw, onLayoutChange)

	// --- 3. Calendar Section (Regions & Categories) ---
	regionsCard := app.buildRegionsCard(sw)
	categoriesCard := app.buildCategoriesCard(sw)

	// --- 4. General Section (Interval & Port) ---

	// Interval: Numerical only. No specific validator needed as "0" or "empty" are handled in save logic.
	sw.entryInterval = NewNumericalEntry()
	sw.entryInterval.SetText(strconv.Itoa(app.Preferences.IntWithFallback(config.PrefInterval, config.DefaultRefreshMin)))

	// Port: Numerical only, but requires strict Validation (Range 1-65535).
	sw.entryPort = NewNumericalEntry()
	sw.entryPort.SetText(app.Preferences.StringWithFallback(config.PrefServerPort, config.DefaultPort))
	sw.entryPort.Validator = func(s string) error {
		if s == "" {
			return errors.New(app.GetMsg(config.TKeyErrPortReq))
		}
		port, err := strconv.Atoi(s)
		if err != nil {
			return errors.New(app.GetMsg(config.TKeyErrPortNum))
		}
		if port < config.MinPort || port > config.MaxPort {
			return errors.New(app.GetMsg(config.TKeyErrPortRange))
		}
		return nil
	}

	itemLang := widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect)
	itemLang.HintText = app.GetMsg(config.TKeyHelpLanguage)

	widInterval := container.NewBorder(nil, nil, nil, widget.NewLabel(app.GetMsg(config.TKeyLblMinutes)), sw.entryInterval)
	itemInterval := widget.NewFormItem(app.GetMsg(config.TKeyLblRefresh), widInterval)
	itemInterval.HintText = app.GetMsg(config.TKeyHelpInterval)

	itemPort := widget.NewFormItem(app.GetMsg(config.TKeyLblPort), sw.entryPort)
	itemPort.HintText = app.GetMsg(config.TKeyHelpPort)

	generalForm := widget.NewForm(itemLang, itemInterval, itemPort)
	generalCard := widget.NewCard(app.GetMsg(config.TKeyLblGeneral), "", generalForm)

	// --- 5. Reminder Section ---
	sw.checkReminder = widget.NewCheck(app.GetMsg(config.TKeyLblEnableRem), nil)
	sw.checkReminder.Checked = app.Preferences.Bool(config.PrefReminderEnabled)

	// Reminder Value: Numerical only. No validator needed; empty disables the feature in save logic.
	sw.entryRemValue = NewNumericalEntry()
	sw.entryRemValue.SetText(strconv.Itoa(app.Preferences.IntWithFallback(config.PrefReminderValue, config.DefaultReminderValue)))

	sw.selectRemUnit = widget.NewSelect([]string{
		app.GetMsg(config.TKeyUnitDays),
		app.GetMsg(config.TKeyUnitHours),
		app.GetMsg(config.TKeyUnitMinutes),
	}, nil)

	currentUnit := app.Preferences.StringWithFallback(config.PrefReminderUnit, config.UnitDays)
	switch currentUnit {
	case config.UnitHours:
		sw.selectRemUnit.SetSelected(app.GetMsg(config.TKeyUnitHours))
	case config.UnitMinutes:
		sw.selectRemUnit.SetSelected(app.GetMsg(config.TKeyUnitMinutes))
	default:
		sw.selectRemUnit.SetSelected(app.GetMsg(config.TKeyUnitDays))
	}

	sw.selectRemDir = widget.NewSelect([]string{
		app.GetMsg(config.TKeyDirBefore),
		app.GetMsg(config.TKeyDirAfter),
	}, nil)
	currentDir := app.Preferences.StringWithFallback(config.PrefReminderDir, config.DirBefore)
	if currentDir == config.DirAfter {
		sw.selectRemDir.SetSelected(app.GetMsg(config.TKeyDirAfter))
	} else {
		sw.selectRemDir.SetSelected(app.GetMsg(config.TKeyDirBefore))
	}

	notifCard := app.buildNotifCard(sw, onLayoutChange)

	// --- Actions ---
	saveAction := func() {
		// Only the Port field has a strict requirement that blocks saving if invalid.
		if err := sw.entryPort.Validate(); err != nil {
			dialog.ShowError(err, w)
			return
		}
		// A calendar with no visible categories is meaningless; refuse the save.
		if countChecked(sw.categoryChecks) == 0 {
			dialog.ShowError(errors.New(app.GetMsg(config.TKeyErrLastCat)), w)
			return
		}
		app.saveSettings(sw, w)
	}

	btnSave = widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), saveAction)
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	// --- Footer ---
	footerText := fmt.Sprintf("%s %s", app.GetMsg(config.TKeyLblFooter), config.Version)
	footerLabel := widget.NewLabel(footerText)
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	// Assembly
	paddedContent := container.NewPadded(container.NewVBox(
		sourceCard,
		regionsCard,
		categoriesCard,
		generalCard,
		notifCard,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	refreshLayout = func() {
		paddedContent.Refresh()
		minSize := paddedContent.MinSize()
		w.Resize(fyne.NewSize(config.SettingsWindowWidth, minSize.Height))
	}

	w.SetContent(paddedContent)
	w.SetFixedSize(true)
	w.SetOnClosed(func() { app.Window = nil })

	refreshLayout()
	w.Show()
}

// buildSourceCard constructs the source selection UI.
func (app *DaybookApp) buildSourceCard(w fyne.Window, sw *settingsWidgets, onLayoutChange func()) *widget.Card {
	browseBtn := widget.NewButton(app.GetMsg(config.TKeyBtnBrowse), func() {
		d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err == nil && r != nil {
				sw.pathEntry.SetText(r.URI().Path())
			}
		}, w)
		d.SetFilter(storage.NewExtensionFileFilter([]string{config.ExtVCF, config.ExtVCard}))
		d.Show()
	})

	// Web Form
	itemURL := widget.NewFormItem(app.GetMsg(config.TKeyLblURL), sw.urlEntry)
	itemURL.HintText = app.GetMsg(config.TKeyHelpURL)

	itemUser := widget.NewFormItem(app.GetMsg(config.TKeyLblUser), sw.userEntry)
	itemPass := widget.NewFormItem(app.GetMsg(config.TKeyLblPass), sw.passEntry)

	webForm := widget.NewForm(itemURL, itemUser, itemPass)

	// Local Form
	localForm := container.NewBorder(nil, nil, nil, browseBtn, sw.pathEntry)

	// Dynamic visibility based on mode
	updateVis := func(mode string) {
		if mode == app.GetMsg(config.TKeyModeLocal) {
			webForm.Hide()
			localForm.Show()
		} else {
			webForm.Show()
			localForm.Hide()
		}
		if onLayoutChange != nil {
			onLayoutChange()
		}
	}
	sw.modeSelect.OnChanged = updateVis

	// Set initial state
	currentMode := app.Preferences.String(config.PrefSourceMode)
	if currentMode == config.SourceModeLocal {
		sw.modeSelect.SetSelected(app.GetMsg(config.TKeyModeLocal))
	} else {
		sw.modeSelect.SetSelected(app.GetMsg(config.TKeyModeCardDAV))
	}

	// Apply initial visibility
	if sw.modeSelect.Selected == app.GetMsg(config.TKeyModeLocal) {
		webForm.Hide()
		localForm.Show()
	} else {
		webForm.Show()
		localForm.Hide()
	}

	return widget.NewCard(app.GetMsg(config.TKeyLblSource), "", container.NewVBox(sw.modeSelect, webForm, localForm))
}

// buildRegionsCard lists every seeded region as a checkbox. Custom rules the
// user created carry their own region strings and are always active, so only
// the built-in packs are toggled here.
func (app *DaybookApp) buildRegionsCard(sw *settingsWidgets) *widget.Card {
	regions, err := store.SeedRegions()
	if err != nil {
		slog.Warn(config.ErrSeedDecode,
			config.LogKeyComponent, config.CompUISet,
			config.LogKeyError, err)
	}
	sort.Strings(regions)

	enabled := make(map[string]bool)
	for _, r := range app.loadRegions() {
		enabled[r] = true
	}

	sw.regionChecks = make(map[string]*widget.Check, len(regions))
	checks := make([]fyne.CanvasObject, 0, len(regions))
	for _, region := range regions {
		check := widget.NewCheck(region, nil)
		check.Checked = enabled[region]
		sw.regionChecks[region] = check
		checks = append(checks, check)
	}

	help := widget.NewLabel(app.GetMsg(config.TKeyHelpRegions))
	help.TextStyle = fyne.TextStyle{Italic: true}

	return widget.NewCard(app.GetMsg(config.TKeyLblRegions), "",
		container.NewVBox(container.NewGridWithColumns(config.LayoutColumnsDouble, checks...), help))
}

// buildCategoriesCard exposes one checkbox per category. The save action
// rejects a state where all of them are unchecked.
func (app *DaybookApp) buildCategoriesCard(sw *settingsWidgets) *widget.Card {
	active := app.loadFilters()

	sw.categoryChecks = make(map[engine.Category]*widget.Check, len(engine.Categories))
	checks := make([]fyne.CanvasObject, 0, len(engine.Categories))
	for _, cat := range engine.Categories {
		check := widget.NewCheck(app.GetMsg(cat.Info().TitleKey), nil)
		check.Checked = active.Active(cat)
		sw.categoryChecks[cat] = check
		checks = append(checks, check)
	}

	help := widget.NewLabel(app.GetMsg(config.TKeyHelpCategories))
	help.TextStyle = fyne.TextStyle{Italic: true}

	return widget.NewCard(app.GetMsg(config.TKeyLblCategories), "",
		container.NewVBox(container.NewGridWithColumns(config.LayoutColumnsDouble, checks...), help))
}

// buildNotifCard constructs the notification/reminder UI.
func (app *DaybookApp) buildNotifCard(sw *settingsWidgets, onLayoutChange func()) *widget.Card {
	// Controls: Value | Unit | Direction
	controls := container.NewHBox(sw.selectRemUnit, sw.selectRemDir)
	row := container.NewBorder(nil, nil, nil, controls, sw.entryRemValue)

	sw.checkReminder.OnChanged = func(b bool) {
		if b {
			row.Show()
		} else {
			row.Hide()
		}
		if onLayoutChange != nil {
			onLayoutChange()
		}
	}

	if sw.checkReminder.Checked {
		row.Show()
	} else {
		row.Hide()
	}

	return widget.NewCard(app.GetMsg(config.TKeyLblNotif), "", container.NewVBox(sw.checkReminder, row))
}

func countChecked[K comparable](checks map[K]*widget.Check) int {
	n := 0
	for _, c := range checks {
		if c.Checked {
			n++
		}
	}
	return n
}

// saveSettings persists the data and triggers a refresh.
// It handles logic for disabling features if numeric fields are empty.
func (app *DaybookApp) saveSettings(sw *settingsWidgets, w fyne.Window) {
	slog.Info("Saving preferences", config.LogKeyComponent, config.CompUISet)

	// Helper to map UI strings back to config constants
	modeMap := map[string]string{
		app.GetMsg(config.TKeyModeCardDAV): config.SourceModeWeb,
		app.GetMsg(config.TKeyModeLocal):   config.SourceModeLocal,
	}

	app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)
	app.Preferences.SetString(config.PrefSourceMode, modeMap[sw.modeSelect.Selected])
	app.Preferences.SetString(config.PrefCardDAVURL, sw.urlEntry.Text)
	app.Preferences.SetString(config.PrefUsername, sw.userEntry.Text)
	app.Preferences.SetString(config.PrefLocalPath, sw.pathEntry.Text)

	// Save password to Keyring only if provided
	if sw.userEntry.Text != "" && sw.passEntry.Text != "" {
		if err := keyring.Set(config.KeyringService, sw.userEntry.Text, sw.passEntry.Text); err != nil {
			slog.Error("Failed to save credentials to keyring", config.LogKeyError, err, config.LogKeyComponent, config.CompUISet)
		}
	}

	// Regions
	var regions []string
	for region, check := range sw.regionChecks {
		if check.Checked {
			regions = append(regions, region)
		}
	}
	sort.Strings(regions)
	app.Preferences.SetString(config.PrefRegions, strings.Join(regions, config.PrefListSeparator))

	// Categories (saveAction already refused an all-unchecked state)
	var catKeys []string
	for _, cat := range engine.Categories {
		if check := sw.categoryChecks[cat]; check != nil && check.Checked {
			catKeys = append(catKeys, cat.Info().Key)
		}
	}
	app.Preferences.SetString(config.PrefCategories, strings.Join(catKeys, config.PrefListSeparator))

	// Logic: Interval
	// If empty or 0, we treat it as disabled (0).
	intervalText := sw.entryInterval.Text
	if intervalText == "" || intervalText == "0" {
		app.Preferences.SetInt(config.PrefInterval, config.DisabledInterval)
		slog.Info("Auto-refresh disabled via settings", config.LogKeyComponent, config.CompUISet)
	} else {
		if i, err := strconv.Atoi(intervalText); err == nil {
			app.Preferences.SetInt(config.PrefInterval, i)
		}
	}

	// Port
	if sw.entryPort.Text != "" {
		app.Preferences.SetString(config.PrefServerPort, sw.entryPort.Text)
	}

	// Logic: Reminder
	// If the value field is empty, we force disable reminders, even if the checkbox is checked.
	remValueText := sw.entryRemValue.Text
	if remValueText == "" {
		app.Preferences.SetBool(config.PrefReminderEnabled, false)
		slog.Info("Reminders disabled via settings (value is empty)", config.LogKeyComponent, config.CompUISet)
	} else {
		app.Preferences.SetBool(config.PrefReminderEnabled, sw.checkReminder.Checked)
		if v, err := strconv.Atoi(remValueText); err == nil {
			app.Preferences.SetInt(config.PrefReminderValue, v)
		}
	}

	// Map Unit UI String -> Config Code (d, h, m)
	unit := config.UnitDays // default
	switch sw.selectRemUnit.Selected {
	case app.GetMsg(config.TKeyUnitHours):
		unit = config.UnitHours
	case app.GetMsg(config.TKeyUnitMinutes):
		unit = config.UnitMinutes
	}
	app.Preferences.SetString(config.PrefReminderUnit, unit)

	// Map Direction UI String -> Config Code (before, after)
	dir := config.DirBefore // default
	if sw.selectRemDir.Selected == app.GetMsg(config.TKeyDirAfter) {
		dir = config.DirAfter
	}
	app.Preferences.SetString(config.PrefReminderDir, dir)

	// Trigger system-wide updates
	app.UpdateLocalizer()
	app.RefreshTrayMenu()
	go app.performRefresh(true) // Force immediate refresh with new settings

	w.Close()
}
