package ui

import (
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/engine"
	"github.com/tartampluch/go-daybook/internal/store"
)

// daysTableRow is one display line of the Special Days window. Holidays that
// share a calendar date are consolidated into a single line carrying a region
// badge, whatever each region titles the day.
type daysTableRow struct {
	Date     string
	sortDate engine.DateKey
	Title    string
	Category engine.Category
	Region   string
}

// ShowDaysWindow displays the focus year's special days in a sortable table.
// It implements a singleton pattern: if the window is already open, it requests focus.
func (app *DaybookApp) ShowDaysWindow() {
	if app.daysWindow != nil {
		app.daysWindow.RequestFocus()
		return
	}

	title := app.GetMsg(config.TKeyWinDays)
	app.daysWindow = app.App.NewWindow(title)
	app.daysWindow.Resize(fyne.NewSize(config.DaysWinWidth, config.DaysWinHeight))

	// Snapshot the rows to avoid racing the background worker.
	app.RowsMut.RLock()
	rowsCopy := make([]engine.SpecialDayRow, len(app.Rows))
	copy(rowsCopy, app.Rows)
	app.RowsMut.RUnlock()

	displayRows := app.buildDaysTable(rowsCopy)

	slog.Info(config.LogMsgOpenWin,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyCount, len(displayRows))

	// Internal Sorting State
	currentSortCol := config.ColIDDate
	sortAsc := true

	var refreshTable func()

	performSort := func() {
		sort.Slice(displayRows, func(i, j int) bool {
			a, b := displayRows[i], displayRows[j]
			var less bool
			switch currentSortCol {
			case config.ColIDTitle:
				less = strings.ToLower(a.Title) < strings.ToLower(b.Title)
			case config.ColIDCategory:
				if a.Category == b.Category {
					less = a.sortDate.Less(b.sortDate)
				} else {
					less = a.Category < b.Category
				}
			case config.ColIDRegion:
				if a.Region == b.Region {
					less = a.sortDate.Less(b.sortDate)
				} else {
					less = a.Region < b.Region
				}
			default: // config.ColIDDate
				if a.sortDate == b.sortDate {
					// Secondary sort key: Title
					less = a.Title < b.Title
				} else {
					less = a.sortDate.Less(b.sortDate)
				}
			}

			if !sortAsc {
				return !less
			}
			return less
		})

		slog.Debug(config.LogMsgSorted,
			config.LogKeyComponent, config.CompUI,
			config.LogKeySortCol, currentSortCol,
			config.LogKeySortAsc, sortAsc)
	}

	// Initial sort (Default: By Date, Ascending)
	performSort()

	// --- UI Table Component ---

	table := widget.NewTable(
		func() (int, int) {
			return len(displayRows), 4
		},
		func() fyne.CanvasObject {
			return widget.NewLabel(config.TablePlaceholder)
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			label := o.(*widget.Label)
			if id.Row >= len(displayRows) {
				return
			}
			row := displayRows[id.Row]

			switch id.Col {
			case config.ColIDDate:
				label.SetText(row.Date)
			case config.ColIDTitle:
				label.SetText(row.Title)
			case config.ColIDCategory:
				label.SetText(app.GetMsg(row.Category.Info().TitleKey))
			case config.ColIDRegion:
				label.SetText(row.Region)
			}
		},
	)

	// --- Header Configuration (Fyne Native) ---

	table.ShowHeaderRow = true

	table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton("Header", func() {})
	}

	table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		btn := o.(*widget.Button)

		var titleKey string
		switch id.Col {
		case config.ColIDDate:
			titleKey = config.TKeyColDate
		case config.ColIDTitle:
			titleKey = config.TKeyColTitle
		case config.ColIDCategory:
			titleKey = config.TKeyColCategory
		case config.ColIDRegion:
			titleKey = config.TKeyColRegion
		}

		text := app.GetMsg(titleKey)

		if id.Col == currentSortCol {
			if sortAsc {
				text += config.SortIconAsc
			} else {
				text += config.SortIconDesc
			}
		}

		btn.SetText(text)

		btn.OnTapped = func() {
			if currentSortCol == id.Col {
				sortAsc = !sortAsc
			} else {
				currentSortCol = id.Col
				sortAsc = true
			}
			refreshTable()
		}
	}

	table.SetColumnWidth(config.ColIDDate, config.ColWidthDate)
	table.SetColumnWidth(config.ColIDTitle, config.ColWidthTitle)
	table.SetColumnWidth(config.ColIDCategory, config.ColWidthCategory)
	table.SetColumnWidth(config.ColIDRegion, config.ColWidthRegion)

	refreshTable = func() {
		performSort()
		table.Refresh()
	}

	// Layout Assembly
	addBtn := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnAddMemo), theme.ContentAddIcon(), func() {
		app.showQuickMemoDialog()
	})
	content := container.NewBorder(nil, addBtn, nil, nil, table)
	app.daysWindow.SetContent(content)

	app.daysWindow.SetOnClosed(func() {
		app.daysWindow = nil
	})

	app.daysWindow.Show()
}

// showQuickMemoDialog captures a memo for today without leaving the Special
// Days window: a title, and optionally an amount turning the note into an
// expense entry.
func (app *DaybookApp) showQuickMemoDialog() {
	titleEntry := widget.NewEntry()
	amountEntry := NewDecimalEntry()

	items := []*widget.FormItem{
		widget.NewFormItem(app.GetMsg(config.TKeyLblMemoTitle), titleEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblAmount), amountEntry),
	}

	dialog.ShowForm(
		app.GetMsg(config.TKeyBtnAddMemo),
		app.GetMsg(config.TKeyBtnSave),
		app.GetMsg(config.TKeyBtnCancel),
		items,
		func(confirmed bool) {
			if !confirmed {
				return
			}
			memo, err := quickMemo(titleEntry.Text, amountEntry.Text, app.Clock.Now())
			if err == nil {
				err = app.Store.SaveMemo(memo)
			}
			if err != nil {
				dialog.ShowError(err, app.daysWindow)
				return
			}
			go app.performRefresh(false)
		},
		app.daysWindow,
	)
}

// quickMemo builds a memo from the quick-add inputs. An empty amount yields a
// plain note; a parseable amount adds the expense group on top.
func quickMemo(title, amountText string, date time.Time) (*store.Memo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New(config.ErrMemoTitle)
	}

	memo := &store.Memo{
		Title:    title,
		Date:     date,
		Features: store.NewFeatureSet(store.FeatureNote),
	}

	if amountText = strings.TrimSpace(amountText); amountText != "" {
		amount, err := strconv.ParseFloat(amountText, 64)
		if err != nil {
			return nil, errors.New(config.ErrAmountRequired)
		}
		memo.Features = store.NewFeatureSet(store.FeatureNote, store.FeatureExpense)
		memo.Amount = &amount
	}

	return memo, memo.Validate()
}

// buildDaysTable converts aggregated rows into display lines, consolidating
// same-date holidays into a single line with a region badge. Titles may differ
// across regions; the first row's title is canonical.
func (app *DaybookApp) buildDaysTable(rows []engine.SpecialDayRow) []daysTableRow {
	format := app.GetMsg(config.TKeyFormatDate)
	if format == config.TKeyFormatDate {
		format = config.DateFormatDisplay
	}

	var display []daysTableRow
	consolidated := engine.ConsolidateAll(rows)
	seen := make(map[string]struct{}, len(rows))

	for _, group := range consolidated {
		for _, r := range group.Rows {
			seen[r.ID] = struct{}{}
		}
		display = append(display, daysTableRow{
			Date:     group.Date.Format(format),
			sortDate: engine.KeyOf(group.Date),
			Title:    group.Title,
			Category: engine.CategoryHoliday,
			Region:   group.RegionBadge(),
		})
	}

	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		display = append(display, daysTableRow{
			Date:     row.Date.Format(format),
			sortDate: row.Key(),
			Title:    row.Title,
			Category: row.Category,
			Region:   row.Region,
		})
	}
	return display
}
