package ui

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/engine"
	"github.com/tartampluch/go-daybook/internal/server"
	"github.com/tartampluch/go-daybook/internal/store"
	"github.com/zalando/go-keyring"
)

//go:embed Icon.png
var appIconData []byte

// DaybookApp encapsulates the UI state, preferences, and background logic.
type DaybookApp struct {
	App         fyne.App
	Window      fyne.Window
	Preferences fyne.Preferences
	I18nBundle  *i18n.Bundle
	Localizer   *i18n.Localizer
	Ctx         context.Context

	Server     *server.FeedServer
	Store      *store.Store
	Fetcher    engine.VCardFetcher
	Clock      engine.Clock // Injected clock for testability (e.g. mocking time travel)
	Aggregator *engine.Aggregator

	Tray desktop.App
	Menu *fyne.Menu

	TrayStatusItem   *fyne.MenuItem
	TrayRefreshItem  *fyne.MenuItem
	TraySettingsItem *fyne.MenuItem

	SupportedLanguages []string
	configChan         chan string

	// Special Days State (focus year snapshot for the table window)
	RowsMut    sync.RWMutex
	Rows       []engine.SpecialDayRow
	daysWindow fyne.Window
}

// NewDaybookApp constructs the application and wires dependencies.
func NewDaybookApp(a fyne.App, ctx context.Context, srv *server.FeedServer, st *store.Store, fetcher engine.VCardFetcher) *DaybookApp {
	a.SetIcon(fyne.NewStaticResource(config.IconFile, appIconData))

	return &DaybookApp{
		App:                a,
		Preferences:        a.Preferences(),
		Ctx:                ctx,
		Server:             srv,
		Store:              st,
		Fetcher:            fetcher,
		Clock:              engine.RealClock{}, // Default to real clock in production
		Aggregator:         engine.NewAggregator(),
		SupportedLanguages: config.SupportedLanguages,
		configChan:         make(chan string, config.ChannelBufferSize),
		Rows:               make([]engine.SpecialDayRow, 0),
	}
}

// Run launches the application services and the main UI loop.
func (app *DaybookApp) Run() {
	app.SetupI18n()
	app.watchPreferences()

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyPort, app.Server.Port,
			config.LogKeyComponent, config.CompUI)

		if err := app.Server.Start(app.Ctx); err != nil {
			slog.Error(config.ErrServerStartup,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUI)

			app.App.SendNotification(fyne.NewNotification(
				config.TitleStartupError,
				fmt.Sprintf(config.MsgPortBusy, app.Server.Port)))
		}
	}()

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	} else {
		slog.Warn(config.ErrTrayNotSupported,
			config.LogKeyComponent, config.CompUI)
	}

	go app.backgroundWorker()
	app.App.Run()
}

// watchPreferences monitors changes to settings to trigger immediate updates.
func (app *DaybookApp) watchPreferences() {
	app.Preferences.AddChangeListener(func() {
		select {
		case app.configChan <- config.PrefInterval:
		default:
		}
	})
}

// setupTrayMenu constructs the system tray menu.
func (app *DaybookApp) setupTrayMenu() {
	// Status Item acts as a button to open the Special Days window.
	app.TrayStatusItem = fyne.NewMenuItem(config.FallbackTrayLabel, func() {
		app.ShowDaysWindow()
	})
	app.TrayStatusItem.Disabled = false

	app.TrayRefreshItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuRefresh), func() {
		go app.performRefresh(true)
	})

	app.TraySettingsItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayStatusItem,
		fyne.NewMenuItemSeparator(),
		app.TrayRefreshItem,
		app.TraySettingsItem,
	)

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *DaybookApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TrayRefreshItem.Label = app.GetMsg(config.TKeyMenuRefresh)
	app.TraySettingsItem.Label = app.GetMsg(config.TKeyMenuSettings)
	app.Menu.Refresh()
}

// backgroundWorker manages the periodic refresh schedule.
func (app *DaybookApp) backgroundWorker() {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	app.performRefresh(false)

	getInterval := func() time.Duration {
		val := app.Preferences.IntWithFallback(config.PrefInterval, config.DefaultRefreshMin)
		if val <= 0 {
			val = config.DefaultRefreshMin
		}
		return time.Duration(val) * time.Minute
	}

	currentDuration := getInterval()
	ticker := time.NewTicker(currentDuration)
	defer ticker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, currentDuration)

	for {
		select {
		case <-app.Ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-app.configChan:
			newDuration := getInterval()
			if newDuration != currentDuration {
				log.Info(config.MsgUpdateInterval, config.LogKeyOld, currentDuration, config.LogKeyNew, newDuration)
				currentDuration = newDuration
				ticker.Reset(currentDuration)
			}

		case <-ticker.C:
			app.performRefresh(false)
		}
	}
}

// performRefresh executes the full pipeline: optional contact import, source
// loading, aggregation, feed generation and server/tray updates.
func (app *DaybookApp) performRefresh(manual bool) {
	slog.Info(config.MsgRefreshReq,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyManual, manual)

	if manual {
		app.App.SendNotification(fyne.NewNotification(config.AppName, app.GetMsg(config.TKeyNotifStart)))
	}

	app.importContacts()

	rules, err := app.Store.Rules()
	if err == nil {
		var contacts []store.Contact
		var memos []store.Memo
		if contacts, err = app.Store.Contacts(); err == nil {
			memos, err = app.Store.Memos()
		}
		if err == nil {
			err = app.publish(rules, contacts, memos)
		}
	}

	if err != nil {
		slog.Error(config.MsgRefreshFailed, config.LogKeyError, err, config.LogKeyComponent, config.CompUI)
		if manual {
			app.App.SendNotification(fyne.NewNotification(config.TitleRefreshError, app.GetMsg(config.TKeyNotifError)))
		}
		app.updateTrayStatus(-1)
		return
	}

	if manual {
		app.App.SendNotification(fyne.NewNotification(config.AppName, app.GetMsg(config.TKeyNotifSuccess)))
	}
}

// importContacts pulls the configured vCard source into the store. A missing
// source configuration is not an error; the journal works fine without one.
func (app *DaybookApp) importContacts() {
	cfg := app.loadImportConfig()
	if cfg.Mode == config.SourceModeLocal && cfg.LocalPath == "" {
		return
	}
	if cfg.Mode == config.SourceModeWeb && cfg.WebURL == "" {
		return
	}
	if cfg.Mode == "" {
		return
	}

	imp := &engine.Importer{Fetcher: app.Fetcher}
	contacts, err := imp.Run(app.Ctx, cfg)
	if err != nil {
		slog.Warn(config.ErrVCardParse,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		return
	}
	if err := app.Store.UpsertContacts(contacts); err != nil {
		slog.Error(config.ErrSeedApply,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
	}
}

// publish aggregates all sources and hands the rendered payloads to the
// HTTP server, then refreshes the tray status.
func (app *DaybookApp) publish(rules []store.HolidayRule, contacts []store.Contact, memos []store.Memo) error {
	// Rules were just re-read from the store and may have changed; the resolver
	// cache cannot see that through its key, so drop it explicitly.
	app.Aggregator.Resolver.Invalidate()

	now := app.Clock.Now()
	focusYear := app.Preferences.IntWithFallback(config.PrefFocusYear, now.Year())
	filters := app.loadFilters()
	regions := app.loadRegions()

	feedCfg := engine.FeedConfig{
		FocusYear:       focusYear,
		Regions:         regions,
		Filters:         filters,
		ReminderTrigger: app.reminderTrigger(),
		FormatBirthday:  app.buildSummaryFormatter(),
	}

	feed, rows, countToday, err := app.Aggregator.BuildFeed(app.Clock, rules, contacts, memos, feedCfg)
	if err != nil {
		return err
	}

	// Thread-safe update of the focus-year snapshot.
	app.RowsMut.Lock()
	app.Rows = rows
	app.RowsMut.Unlock()

	app.Server.UpdateFeed(feed)

	// Day cards for the current month, as consumed by the JSON endpoint.
	monthRows := app.Aggregator.RowsForMonth(rules, contacts, memos, engine.MonthQuery{
		Year:    focusYear,
		Month:   now.Month(),
		Regions: regions,
		Filters: filters,
	})
	cards := engine.DayCards(monthRows)
	if data, err := json.Marshal(cards); err == nil {
		app.Server.UpdateDays(data)
	}

	app.updateTrayStatus(countToday)
	return nil
}

// updateTrayStatus updates the top menu item to show how many special days are today.
func (app *DaybookApp) updateTrayStatus(count int) {
	if app.Menu == nil || app.TrayStatusItem == nil {
		return
	}

	var label string
	if count < 0 {
		label = config.FallbackTrayError
	} else if count == 0 {
		label = app.GetMsg(config.TKeyTrayStatusZero)
		if label == config.TKeyTrayStatusZero {
			label = fmt.Sprintf(config.FallbackTrayDefault, 0)
		}
	} else {
		if app.Localizer != nil {
			msg, err := app.Localizer.Localize(&i18n.LocalizeConfig{
				MessageID:    config.TKeyTrayStatus,
				TemplateData: map[string]interface{}{"Count": count},
				PluralCount:  count,
			})
			if err == nil {
				label = msg
			}
		}
		if label == "" {
			label = fmt.Sprintf(config.FallbackTrayDefault, count)
		}
	}

	app.TrayStatusItem.Label = label
	app.Menu.Refresh()
}

// loadImportConfig assembles the import configuration from preferences and Keyring.
func (app *DaybookApp) loadImportConfig() engine.ImportConfig {
	cfg := engine.ImportConfig{
		Mode:      app.Preferences.String(config.PrefSourceMode),
		LocalPath: app.Preferences.String(config.PrefLocalPath),
		WebURL:    app.Preferences.String(config.PrefCardDAVURL),
		WebUser:   app.Preferences.String(config.PrefUsername),
	}

	if cfg.WebUser != "" {
		if p, err := keyring.Get(config.KeyringService, cfg.WebUser); err == nil {
			cfg.WebPass = p
		} else {
			slog.Debug(config.MsgPassFail,
				config.LogKeyUser, cfg.WebUser,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUI)
		}
	}
	return cfg
}

// loadRegions reads the enabled-region subscription from preferences.
func (app *DaybookApp) loadRegions() []string {
	raw := app.Preferences.String(config.PrefRegions)
	if raw == "" {
		return config.DefaultRegions
	}
	var regions []string
	for _, r := range strings.Split(raw, config.PrefListSeparator) {
		if r = strings.TrimSpace(r); r != "" {
			regions = append(regions, r)
		}
	}
	if len(regions) == 0 {
		return config.DefaultRegions
	}
	return regions
}

// loadFilters reads the active category filter from preferences. The filter
// can never be empty; FilterSetFromKeys falls back to all categories.
func (app *DaybookApp) loadFilters() engine.FilterSet {
	return engine.FilterSetFromKeys(app.Preferences.String(config.PrefCategories))
}

// reminderTrigger builds the ISO8601 alarm trigger from reminder preferences.
func (app *DaybookApp) reminderTrigger() string {
	if !app.Preferences.Bool(config.PrefReminderEnabled) {
		return ""
	}

	val := app.Preferences.IntWithFallback(config.PrefReminderValue, config.DefaultReminderValue)
	unit := app.Preferences.StringWithFallback(config.PrefReminderUnit, config.UnitDays)
	dir := app.Preferences.StringWithFallback(config.PrefReminderDir, config.DirBefore)

	sign := config.ISOPeriodPrefix
	if dir == config.DirBefore {
		sign = config.ISONegativePrefix
	}

	switch unit {
	case config.UnitHours:
		return fmt.Sprintf("%s%d%s", sign, val, config.ISOHour)
	case config.UnitMinutes:
		return fmt.Sprintf("%s%d%s", sign, val, config.ISOMinute)
	default:
		return fmt.Sprintf("%s%d%s", sign, val, config.ISODay)
	}
}

// buildSummaryFormatter returns a closure that localizes birthday summaries.
func (app *DaybookApp) buildSummaryFormatter() func(name string, age int, ageKnown bool) string {
	return func(name string, age int, ageKnown bool) string {
		var msg string
		var err error

		if app.Localizer != nil {
			if ageKnown {
				// Special Case: Age 0 means "Birth"
				if age == 0 {
					msg, err = app.Localizer.Localize(&i18n.LocalizeConfig{
						MessageID:    config.TKeyEvtSummaryBirth,
						TemplateData: map[string]interface{}{"Name": name},
					})
				} else {
					msg, err = app.Localizer.Localize(&i18n.LocalizeConfig{
						MessageID:    config.TKeyEvtSummaryAge,
						TemplateData: map[string]interface{}{"Name": name, "Age": age},
					})
				}
			} else {
				msg, err = app.Localizer.Localize(&i18n.LocalizeConfig{
					MessageID:    config.TKeyEvtSummary,
					TemplateData: map[string]interface{}{"Name": name},
				})
			}
		} else {
			err = fmt.Errorf("%s", config.ErrLocNotInit)
		}

		if err != nil || msg == "" {
			if ageKnown {
				if age == 0 {
					return fmt.Sprintf(config.FallbackSummaryBirth, name)
				}
				return fmt.Sprintf(config.FallbackSummaryAge, name, age)
			}
			return fmt.Sprintf(config.FallbackSummary, name)
		}
		return msg
	}
}
