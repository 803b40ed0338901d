package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-daybook/internal/config"
)

// ConsolidatedHoliday merges same-date holiday rows from different regions
// into one display entry. The merge is keyed on the date alone: two regions
// declaring the same day are treated as the same semantic holiday even when
// their localized titles differ. A false merge of unrelated coinciding
// holidays is an accepted trade-off of that rule.
type ConsolidatedHoliday struct {
	Date    time.Time
	Title   string // first row's title wins as the canonical display name
	Regions []string
	Rows    []SpecialDayRow // originals; the first is the tap/edit target
}

// Consolidate merges one day's holiday rows. Rows of other categories are
// ignored; an input with no holiday rows yields nil.
func Consolidate(rows []SpecialDayRow) *ConsolidatedHoliday {
	var out *ConsolidatedHoliday
	seen := make(map[string]bool)

	for _, row := range rows {
		if row.Category != CategoryHoliday {
			continue
		}
		if out == nil {
			out = &ConsolidatedHoliday{Date: row.Date, Title: row.Title}
		}
		out.Rows = append(out.Rows, row)
		if row.Region != "" && !seen[row.Region] {
			seen[row.Region] = true
			out.Regions = append(out.Regions, row.Region)
		}
	}
	return out
}

// ConsolidateAll runs the per-day merge across a row span of any length.
// Groups come back in first-appearance order of their dates.
func ConsolidateAll(rows []SpecialDayRow) []*ConsolidatedHoliday {
	byDay := make(map[DateKey]int)
	var out []*ConsolidatedHoliday

	for _, row := range rows {
		if row.Category != CategoryHoliday {
			continue
		}
		key := row.Key()
		idx, ok := byDay[key]
		if !ok {
			idx = len(out)
			byDay[key] = idx
			out = append(out, &ConsolidatedHoliday{Date: row.Date, Title: row.Title})
		}
		group := out[idx]
		group.Rows = append(group.Rows, row)
		if row.Region != "" && !containsRegion(group.Regions, row.Region) {
			group.Regions = append(group.Regions, row.Region)
		}
	}
	return out
}

func containsRegion(regions []string, region string) bool {
	for _, r := range regions {
		if r == region {
			return true
		}
	}
	return false
}

// RegionBadge renders the contributing regions: up to MaxInlineRegions codes
// inline, then a "+N" overflow marker for the rest.
func (c *ConsolidatedHoliday) RegionBadge() string {
	if c == nil || len(c.Regions) == 0 {
		return ""
	}
	inline := c.Regions
	overflow := 0
	if len(inline) > config.MaxInlineRegions {
		overflow = len(inline) - config.MaxInlineRegions
		inline = inline[:config.MaxInlineRegions]
	}
	badge := strings.Join(inline, config.RegionSeparator)
	if overflow > 0 {
		badge += config.RegionSeparator + fmt.Sprintf(config.FormatRegionOverflow, overflow)
	}
	return badge
}
