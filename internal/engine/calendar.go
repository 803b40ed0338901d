package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/store"
)

// FeedConfig parameterizes one feed generation pass.
type FeedConfig struct {
	FocusYear       int
	Regions         []string
	Filters         FilterSet
	ReminderTrigger string // ISO8601 duration string (e.g., "-P1D"), empty disables alarms

	// FormatBirthday allows the UI to inject localized birthday summaries.
	FormatBirthday func(name string, age int, ageKnown bool) string
}

// BuildFeed aggregates all sources for FocusYear±FeedYearSpan and renders the
// result as an iCalendar feed. It returns the encoded feed, the focus year's
// rows (reused by the UI windows), and how many special days fall on today.
func (a *Aggregator) BuildFeed(clock Clock, rules []store.HolidayRule, contacts []store.Contact, memos []store.Memo, cfg FeedConfig) ([]byte, []SpecialDayRow, int, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompEngine, config.LogKeyYear, cfg.FocusYear)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Local time drives "today": special days are local calendar facts, the
	// UTC conversion applies only to the DTSTAMP.
	now := clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	todayKey := KeyOf(now)
	var todayRows []SpecialDayRow
	var focusRows []SpecialDayRow

	for year := cfg.FocusYear - config.FeedYearSpan; year <= cfg.FocusYear+config.FeedYearSpan; year++ {
		rows := a.rowsForYear(rules, contacts, memos, year, cfg.Regions, cfg.Filters)
		if year == cfg.FocusYear {
			focusRows = rows
		}
		for _, row := range rows {
			if row.Key() == todayKey {
				todayRows = append(todayRows, row)
				slog.Info(config.MsgToday,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyName, row.Title,
				)
			}
			event := feedEvent(row, year, cfg)
			event.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, event.Component)
		}
	}

	// Regional variants of the same holiday must not inflate the tray figure:
	// SE, NO and FI all declaring New Year's Day is one special day, not three.
	countToday := DistinctEntryCount(todayRows)

	if len(cal.Children) == 0 {
		log.Debug(config.MsgFeedSuccess, config.LogKeyDuration, time.Since(start).Milliseconds())
		return []byte(config.StubVCalendar), focusRows, countToday, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	log.Info(config.MsgFeedSuccess,
		config.LogKeyRows, len(focusRows),
		config.LogKeyDays, UniqueDateCount(focusRows),
		config.LogKeyToday, countToday,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), focusRows, countToday, nil
}

// rowsForYear runs the month aggregation across a whole year.
func (a *Aggregator) rowsForYear(rules []store.HolidayRule, contacts []store.Contact, memos []store.Memo, year int, regions []string, filters FilterSet) []SpecialDayRow {
	var rows []SpecialDayRow
	for month := time.January; month <= time.December; month++ {
		rows = append(rows, a.RowsForMonth(rules, contacts, memos, MonthQuery{
			Year:    year,
			Month:   month,
			Regions: regions,
			Filters: filters,
		})...)
	}
	return rows
}

// feedEvent renders one row as an all-day VEVENT.
func feedEvent(row SpecialDayRow, year int, cfg FeedConfig) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, row.ID, year, config.ICalDomain))

	summary := row.Title
	if row.OriginalBirthday != nil {
		if cfg.FormatBirthday != nil {
			summary = cfg.FormatBirthday(row.Title, row.TurningAge, row.AgeKnown)
		} else if row.AgeKnown {
			if row.TurningAge == 0 {
				summary = fmt.Sprintf(config.FallbackSummaryBirth, row.Title)
			} else {
				summary = fmt.Sprintf(config.FallbackSummaryAge, row.Title, row.TurningAge)
			}
		} else {
			summary = fmt.Sprintf(config.FallbackSummary, row.Title)
		}
	}
	event.Props.SetText(config.PropSummary, summary)
	event.Props.SetText(config.PropCategories, row.Category.Info().Key)
	if row.Notes != "" {
		event.Props.SetText(config.PropDescription, row.Notes)
	}

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(row.Date)
	event.Props.Set(dtStartProp)

	if cfg.ReminderTrigger != "" {
		addAlarm(event, cfg.ReminderTrigger, summary)
	}
	return event
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
