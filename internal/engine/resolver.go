package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-daybook/internal/config"
	"github.com/tartampluch/go-daybook/internal/store"
)

// ResolvedHoliday pairs a rule with its concrete date in the focus year.
type ResolvedHoliday struct {
	Date time.Time
	Rule store.HolidayRule
}

// Resolver expands holiday rules into concrete dates for a focus year and
// caches the result, since the same expansion is needed on every render.
//
// The cache is keyed by (year, enabled-region set); a change to either misses
// naturally. Rule mutations are invisible to the key, so rule create/edit/
// delete paths must call Invalidate explicitly.
type Resolver struct {
	mu     sync.Mutex
	cached map[string][]ResolvedHoliday
}

// Resolve returns the dated occurrences of every enabled rule whose region is
// subscribed. Rules without a region are personal ones and always pass the
// subscription filter. Rules whose month/day do not compose into a valid date
// for the year (a data-integrity problem, e.g. Feb 30) are skipped silently
// and never block the rest.
func (r *Resolver) Resolve(rules []store.HolidayRule, regions []string, year int) []ResolvedHoliday {
	sig := cacheSignature(regions, year)

	r.mu.Lock()
	defer r.mu.Unlock()

	if hit, ok := r.cached[sig]; ok {
		slog.Debug(config.MsgCacheHit,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyYear, year,
		)
		return hit
	}

	subscribed := make(map[string]bool, len(regions))
	for _, region := range regions {
		subscribed[region] = true
	}

	resolved := make([]ResolvedHoliday, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled || (rule.Region != "" && !subscribed[rule.Region]) {
			continue
		}
		date, ok := ComposeDate(year, time.Month(rule.Month), rule.Day, time.Local)
		if !ok {
			slog.Debug(config.MsgSkippedRule,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyRule, rule.Name,
				config.LogKeyYear, year,
			)
			continue
		}
		resolved = append(resolved, ResolvedHoliday{Date: date, Rule: rule})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Date.Before(resolved[j].Date)
	})

	if r.cached == nil {
		r.cached = make(map[string][]ResolvedHoliday)
	}
	r.cached[sig] = resolved

	slog.Debug(config.MsgCacheMiss,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyYear, year,
		config.LogKeyCount, len(resolved),
	)
	return resolved
}

// Invalidate drops all cached expansions. Call after any rule mutation; year
// and region changes invalidate on their own through the cache key.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}

func cacheSignature(regions []string, year int) string {
	sorted := append([]string(nil), regions...)
	sort.Strings(sorted)
	return fmt.Sprintf("%d|%s", year, strings.Join(sorted, ","))
}
