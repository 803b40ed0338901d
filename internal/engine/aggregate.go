package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/store"
)

// FilterSet is the active category filter. It can never become empty: the
// toggle removing the last member is a no-op, mirroring the filter chips in
// the UI which refuse the last deselection.
type FilterSet struct {
	active map[Category]bool
}

// NewFilterSet returns a filter with the given categories active, or all
// categories when none are given.
func NewFilterSet(cats ...Category) FilterSet {
	f := FilterSet{active: make(map[Category]bool, categoryCount)}
	if len(cats) == 0 {
		cats = Categories
	}
	for _, c := range cats {
		f.active[c] = true
	}
	return f
}

// FilterSetFromKeys rebuilds a filter from its persisted preference string.
// Unknown keys are ignored; an effectively empty result falls back to all
// categories active.
func FilterSetFromKeys(joined string) FilterSet {
	var cats []Category
	for _, key := range strings.Split(joined, config.PrefListSeparator) {
		if c, ok := CategoryFromKey(strings.TrimSpace(key)); ok {
			cats = append(cats, c)
		}
	}
	return NewFilterSet(cats...)
}

// Active reports whether c passes the filter.
func (f FilterSet) Active(c Category) bool {
	return f.active[c]
}

// Toggle flips one category and reports whether the change was applied.
// Removing the last active category is refused.
func (f FilterSet) Toggle(c Category) bool {
	if f.active[c] && len(f.activeList()) == 1 {
		return false
	}
	f.active[c] = !f.active[c]
	return true
}

// Keys serializes the active categories for preference storage.
func (f FilterSet) Keys() string {
	var keys []string
	for _, c := range Categories {
		if f.active[c] {
			keys = append(keys, c.Info().Key)
		}
	}
	return strings.Join(keys, config.PrefListSeparator)
}

func (f FilterSet) activeList() []Category {
	var out []Category
	for _, c := range Categories {
		if f.active[c] {
			out = append(out, c)
		}
	}
	return out
}

// MonthQuery describes one aggregation request.
type MonthQuery struct {
	Year    int
	Month   time.Month
	Regions []string
	Filters FilterSet
}

// Aggregator merges the three calendar sources into unified rows. It owns the
// holiday Resolver so repeated month queries within one focus year reuse the
// same expansion.
type Aggregator struct {
	Resolver *Resolver
}

// NewAggregator wires an aggregator with a fresh resolver cache.
func NewAggregator() *Aggregator {
	return &Aggregator{Resolver: &Resolver{}}
}

// RowsForMonth returns the filtered rows of one month. Within a day, item
// order is the scan order of the sources (holidays, observances, birthdays,
// memos); there is deliberately no time-of-day sort, since the display groups
// by category rather than by clock time.
func (a *Aggregator) RowsForMonth(rules []store.HolidayRule, contacts []store.Contact, memos []store.Memo, q MonthQuery) []SpecialDayRow {
	var rows []SpecialDayRow

	resolved := a.Resolver.Resolve(rules, q.Regions, q.Year)

	appendHolidayRows := func(bank bool, cat Category) {
		for _, occ := range resolved {
			if occ.Rule.Bank != bank || occ.Date.Month() != q.Month {
				continue
			}
			rows = append(rows, holidayRow(occ, cat))
		}
	}

	if q.Filters.Active(CategoryHoliday) {
		appendHolidayRows(true, CategoryHoliday)
	}
	if q.Filters.Active(CategoryObservance) {
		appendHolidayRows(false, CategoryObservance)
	}

	if q.Filters.Active(CategoryMemo) {
		for _, c := range contacts {
			row := ProjectBirthday(c, q.Year)
			if row == nil || row.Date.Month() != q.Month {
				continue
			}
			rows = append(rows, *row)
		}
		for _, m := range memos {
			if m.Date.Year() != q.Year || m.Date.Month() != q.Month {
				continue
			}
			rows = append(rows, memoRow(m))
		}
	}

	return rows
}

func holidayRow(occ ResolvedHoliday, cat Category) SpecialDayRow {
	icon := occ.Rule.Icon
	if icon == "" {
		icon = cat.Info().Icon
	}
	return SpecialDayRow{
		ID:       occ.Rule.ID.String() + "-" + occ.Date.Format(config.DateFormatFullBasic),
		RuleID:   occ.Rule.ID,
		Region:   occ.Rule.Region,
		Date:     occ.Date,
		Title:    occ.Rule.Name,
		Category: cat,
		Icon:     icon,
		Notes:    occ.Rule.Notes,
		Custom:   !occ.Rule.System,
	}
}

func memoRow(m store.Memo) SpecialDayRow {
	return SpecialDayRow{
		ID:       m.ID.String(),
		Date:     m.Date,
		Title:    m.Title,
		Category: CategoryMemo,
		Icon:     CategoryMemo.Info().Icon,
		Notes:    m.Notes,
		Memo:     true,
	}
}

// DayCards groups rows by day-of-month into cards sorted ascending by day.
// Item order inside a card preserves the insertion order of rows.
func DayCards(rows []SpecialDayRow) []DayCard {
	byDay := make(map[int]*DayCard)
	var days []int

	for _, row := range rows {
		day := row.Date.Day()
		card, ok := byDay[day]
		if !ok {
			card = &DayCard{Date: row.Date, Day: day}
			byDay[day] = card
			days = append(days, day)
		}
		card.Items = append(card.Items, row)
	}

	sort.Ints(days)
	cards := make([]DayCard, 0, len(days))
	for _, day := range days {
		cards = append(cards, *byDay[day])
	}
	return cards
}

// CategoryRows filters rows to one category.
func CategoryRows(rows []SpecialDayRow, c Category) []SpecialDayRow {
	var out []SpecialDayRow
	for _, row := range rows {
		if row.Category == c {
			out = append(out, row)
		}
	}
	return out
}

// UniqueDateCount collapses rows to their calendar-date keys and returns the
// number of distinct days. Five subscribed regions sharing New Year's Day
// still count as one day with something happening, not five records.
func UniqueDateCount(rows []SpecialDayRow) int {
	seen := make(map[DateKey]struct{}, len(rows))
	for _, row := range rows {
		seen[row.Key()] = struct{}{}
	}
	return len(seen)
}

// DistinctEntryCount counts logical entries the way the consolidated display
// shows them: holiday and observance rows sharing a date are regional variants
// of one event and collapse into a single entry, while every birthday and memo
// row stands on its own. The tray's "today" figure uses this so subscribing to
// more regions never inflates it.
func DistinctEntryCount(rows []SpecialDayRow) int {
	type variant struct {
		cat Category
		key DateKey
	}
	seen := make(map[variant]struct{})
	count := 0
	for _, row := range rows {
		switch row.Category {
		case CategoryHoliday, CategoryObservance:
			v := variant{row.Category, row.Key()}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		count++
	}
	return count
}
