package engine_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-daybook/internal/engine"
	"github.com/tartampluch/go-daybook/internal/store"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

func fixedRule(name, region string, month, day int, bank bool) store.HolidayRule {
	return store.HolidayRule{
		ID:         uuid.New(),
		Name:       name,
		Region:     region,
		Bank:       bank,
		Recurrence: "fixed",
		Month:      month,
		Day:        day,
		System:     true,
		Enabled:    true,
	}
}

func contactWithBirthday(name string, y int, m time.Month, d int) store.Contact {
	b := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return store.Contact{Name: name, Birthday: &b, BirthdayKnown: true, YearKnown: true}
}

// -----------------------------------------------------------------------------
// Resolver
// -----------------------------------------------------------------------------

func TestResolver_RegionSubscription(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("Midsummer", "SE", 6, 20, true),
		fixedRule("Bastille Day", "FR", 7, 14, true),
		fixedRule("My Anniversary", "", 6, 1, false), // regionless personal rule
	}

	r := &engine.Resolver{}
	resolved := r.Resolve(rules, []string{"SE"}, 2025)

	names := make([]string, 0, len(resolved))
	for _, occ := range resolved {
		names = append(names, occ.Rule.Name)
	}

	assert.Contains(t, names, "Midsummer", "Subscribed region must resolve")
	assert.NotContains(t, names, "Bastille Day", "Unsubscribed region must be filtered out")
	assert.Contains(t, names, "My Anniversary", "Regionless personal rules always resolve")
}

func TestResolver_SkipsDisabledAndInvalidRules(t *testing.T) {
	disabled := fixedRule("Disabled", "SE", 5, 1, true)
	disabled.Enabled = false

	rules := []store.HolidayRule{
		disabled,
		fixedRule("Impossible", "SE", 2, 30, true), // Feb 30 never composes
		fixedRule("May Day", "SE", 5, 1, true),
	}

	r := &engine.Resolver{}
	resolved := r.Resolve(rules, []string{"SE"}, 2025)

	require.Len(t, resolved, 1)
	assert.Equal(t, "May Day", resolved[0].Rule.Name)
}

func TestResolver_SortsByDate(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("Late", "SE", 12, 25, true),
		fixedRule("Early", "SE", 1, 1, true),
		fixedRule("Middle", "SE", 6, 6, true),
	}

	r := &engine.Resolver{}
	resolved := r.Resolve(rules, []string{"SE"}, 2025)

	require.Len(t, resolved, 3)
	assert.Equal(t, "Early", resolved[0].Rule.Name)
	assert.Equal(t, "Middle", resolved[1].Rule.Name)
	assert.Equal(t, "Late", resolved[2].Rule.Name)
}

// TestResolver_CacheAndInvalidate verifies the explicit invalidation contract:
// rule mutations are invisible to the cache key, so without Invalidate the
// stale expansion keeps being served.
func TestResolver_CacheAndInvalidate(t *testing.T) {
	rules := []store.HolidayRule{fixedRule("Original", "SE", 3, 3, true)}

	r := &engine.Resolver{}
	first := r.Resolve(rules, []string{"SE"}, 2025)
	require.Len(t, first, 1)

	// Mutate the rule set. Same (year, regions) signature -> cache hit.
	rules = append(rules, fixedRule("Added Later", "SE", 4, 4, true))
	stale := r.Resolve(rules, []string{"SE"}, 2025)
	assert.Len(t, stale, 1, "Cache must serve the old expansion until invalidated")

	r.Invalidate()
	fresh := r.Resolve(rules, []string{"SE"}, 2025)
	assert.Len(t, fresh, 2, "Invalidate must force a recomputation")

	// Different year misses naturally, no Invalidate needed.
	otherYear := r.Resolve(rules, []string{"SE"}, 2026)
	assert.Len(t, otherYear, 2)
}

// -----------------------------------------------------------------------------
// Aggregation
// -----------------------------------------------------------------------------

func TestRowsForMonth_MergesAllSources(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("National Day", "SE", 6, 6, true),
		fixedRule("Mother's Day Season", "SE", 6, 10, false), // observance
	}
	contacts := []store.Contact{contactWithBirthday("Alice", 1990, time.June, 15)}
	memos := []store.Memo{{
		ID:       uuid.New(),
		Title:    "Road trip",
		Date:     time.Date(2025, 6, 20, 0, 0, 0, 0, time.Local),
		Features: store.NewFeatureSet(store.FeatureTrip),
	}}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, contacts, memos, engine.MonthQuery{
		Year:    2025,
		Month:   time.June,
		Regions: []string{"SE"},
		Filters: engine.NewFilterSet(),
	})

	require.Len(t, rows, 4)

	byTitle := make(map[string]engine.SpecialDayRow)
	for _, row := range rows {
		byTitle[row.Title] = row
	}

	assert.Equal(t, engine.CategoryHoliday, byTitle["National Day"].Category)
	assert.Equal(t, engine.CategoryObservance, byTitle["Mother's Day Season"].Category)
	assert.Equal(t, engine.CategoryMemo, byTitle["Alice"].Category)
	assert.NotNil(t, byTitle["Alice"].OriginalBirthday)
	assert.True(t, byTitle["Road trip"].Memo)
}

func TestRowsForMonth_RespectsFilters(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("National Day", "SE", 6, 6, true),
		fixedRule("Season Opener", "SE", 6, 10, false),
	}
	contacts := []store.Contact{contactWithBirthday("Alice", 1990, time.June, 15)}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, contacts, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.June,
		Regions: []string{"SE"},
		Filters: engine.NewFilterSet(engine.CategoryHoliday),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "National Day", rows[0].Title)
}

func TestRowsForMonth_MemoOtherMonthExcluded(t *testing.T) {
	memos := []store.Memo{
		{ID: uuid.New(), Title: "June memo", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local), Features: store.NewFeatureSet(store.FeatureNote)},
		{ID: uuid.New(), Title: "July memo", Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local), Features: store.NewFeatureSet(store.FeatureNote)},
		{ID: uuid.New(), Title: "Last year", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local), Features: store.NewFeatureSet(store.FeatureNote)},
	}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(nil, nil, memos, engine.MonthQuery{
		Year:    2025,
		Month:   time.June,
		Filters: engine.NewFilterSet(),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "June memo", rows[0].Title)
}

// TestUniqueDateCount asserts that multi-region holidays sharing a date count
// as one day, not one per record.
func TestUniqueDateCount(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("New Year (SE)", "SE", 1, 1, true),
		fixedRule("New Year (FR)", "FR", 1, 1, true),
		fixedRule("New Year (US)", "US", 1, 1, true),
		fixedRule("Epiphany", "SE", 1, 6, true),
	}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, nil, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.January,
		Regions: []string{"SE", "FR", "US"},
		Filters: engine.NewFilterSet(),
	})

	require.Len(t, rows, 4, "Every region contributes a row")
	assert.Equal(t, 2, engine.UniqueDateCount(rows), "Jan 1 three times plus Jan 6 is two distinct days")
}

// TestUniqueDateCount_BirthdayAndMemoShareDay covers the memo-category union:
// birthday and memo dates are merged before deduplication, so a shared day
// counts once.
func TestUniqueDateCount_BirthdayAndMemoShareDay(t *testing.T) {
	contacts := []store.Contact{contactWithBirthday("Alice", 1990, time.July, 4)}
	memos := []store.Memo{{
		ID:       uuid.New(),
		Title:    "Fireworks picnic",
		Date:     time.Date(2025, 7, 4, 0, 0, 0, 0, time.Local),
		Features: store.NewFeatureSet(store.FeatureNote),
	}}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(nil, contacts, memos, engine.MonthQuery{
		Year:    2025,
		Month:   time.July,
		Filters: engine.NewFilterSet(engine.CategoryMemo),
	})

	require.Len(t, rows, 2, "Birthday and memo each contribute a row")
	assert.Equal(t, 1, engine.UniqueDateCount(rows), "A shared day counts once, not per source")
}

func TestDistinctEntryCount_CollapsesVariantsOnly(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("New Year (SE)", "SE", 1, 1, true),
		fixedRule("New Year (NO)", "NO", 1, 1, true),
		fixedRule("Quiet Day", "SE", 1, 1, false), // observance on the same date
	}
	contacts := []store.Contact{contactWithBirthday("Alice", 1990, time.January, 1)}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, contacts, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.January,
		Regions: []string{"SE", "NO"},
		Filters: engine.NewFilterSet(),
	})

	require.Len(t, rows, 4)
	assert.Equal(t, 3, engine.DistinctEntryCount(rows),
		"Holiday variants collapse; the observance and the birthday stand alone")
}

func TestDayCards_GroupingAndOrder(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("Late Holiday", "SE", 6, 20, true),
		fixedRule("Early Holiday", "SE", 6, 6, true),
	}
	contacts := []store.Contact{contactWithBirthday("Alice", 1990, time.June, 6)}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, contacts, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.June,
		Regions: []string{"SE"},
		Filters: engine.NewFilterSet(),
	})

	cards := engine.DayCards(rows)

	require.Len(t, cards, 2)
	assert.Equal(t, 6, cards[0].Day, "Cards must be ascending by day")
	assert.Equal(t, 20, cards[1].Day)

	// June 6 card holds holiday and birthday; the holiday came first in scan
	// order and stays first.
	require.Len(t, cards[0].Items, 2)
	assert.Equal(t, "Early Holiday", cards[0].Items[0].Title)
	assert.Equal(t, "Alice", cards[0].Items[1].Title)
}

// -----------------------------------------------------------------------------
// Consolidation
// -----------------------------------------------------------------------------

func TestConsolidate_NeverExpandsRowCount(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("Christmas (SE)", "SE", 12, 25, true),
		fixedRule("Christmas (FR)", "FR", 12, 25, true),
		fixedRule("Christmas (US)", "US", 12, 25, true),
	}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, nil, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.December,
		Regions: []string{"SE", "FR", "US"},
		Filters: engine.NewFilterSet(),
	})
	require.Len(t, rows, 3)

	group := engine.Consolidate(rows)
	require.NotNil(t, group)
	assert.Equal(t, "Christmas (SE)", group.Title, "First row's title is canonical")
	assert.Equal(t, []string{"SE", "FR", "US"}, group.Regions)
	assert.Len(t, group.Rows, 3)
}

func TestConsolidate_IgnoresOtherCategories(t *testing.T) {
	memos := []store.Memo{{
		ID:       uuid.New(),
		Title:    "Note",
		Date:     time.Date(2025, 12, 25, 0, 0, 0, 0, time.Local),
		Features: store.NewFeatureSet(store.FeatureNote),
	}}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(nil, nil, memos, engine.MonthQuery{
		Year:    2025,
		Month:   time.December,
		Filters: engine.NewFilterSet(),
	})

	assert.Nil(t, engine.Consolidate(rows), "Memo-only input has nothing to consolidate")
}

func TestConsolidateAll_GroupsByDate(t *testing.T) {
	rules := []store.HolidayRule{
		fixedRule("Christmas (SE)", "SE", 12, 25, true),
		fixedRule("Christmas (FR)", "FR", 12, 25, true),
		fixedRule("Boxing Day", "SE", 12, 26, true),
	}

	agg := engine.NewAggregator()
	rows := agg.RowsForMonth(rules, nil, nil, engine.MonthQuery{
		Year:    2025,
		Month:   time.December,
		Regions: []string{"SE", "FR"},
		Filters: engine.NewFilterSet(),
	})

	groups := engine.ConsolidateAll(rows)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Rows, 2)
	assert.Len(t, groups[1].Rows, 1)
}

func TestRegionBadge_Overflow(t *testing.T) {
	group := &engine.ConsolidatedHoliday{
		Regions: []string{"SE", "NO", "FI", "FR", "US", "DE"},
	}

	// MaxInlineRegions is 4; the remaining two collapse into "+2".
	assert.Equal(t, "SE NO FI FR +2", group.RegionBadge())

	small := &engine.ConsolidatedHoliday{Regions: []string{"SE", "NO"}}
	assert.Equal(t, "SE NO", small.RegionBadge())

	var nilGroup *engine.ConsolidatedHoliday
	assert.Equal(t, "", nilGroup.RegionBadge())
}
