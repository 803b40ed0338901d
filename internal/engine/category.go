package engine

import "github.com/tartampluch/go-daybook/internal/config"

// Category is the display classification of a special-day row. Birthdays are
// deliberately filed under the memo umbrella: they come from contacts, not
// memos, but share the memo color and filter toggle.
type Category int

const (
	CategoryHoliday Category = iota
	CategoryObservance
	CategoryMemo

	categoryCount
)

// Categories lists all categories in display order.
var Categories = []Category{CategoryHoliday, CategoryObservance, CategoryMemo}

// CategoryInfo is the presentation metadata for one category. Kept as plain
// data so nothing in the engine touches rendering.
type CategoryInfo struct {
	Key      string // stable identifier used in preferences and JSON
	TitleKey string // i18n message id
	Icon     string
	Color    string
}

var categoryInfos = [categoryCount]CategoryInfo{
	{Key: "holiday", TitleKey: config.TKeyCatHoliday, Icon: "flag", Color: "#D64545"},
	{Key: "observance", TitleKey: config.TKeyCatObservance, Icon: "calendar", Color: "#D6A545"},
	{Key: "memo", TitleKey: config.TKeyCatMemo, Icon: "note", Color: "#4573D6"},
}

// Info returns the presentation metadata of c.
func (c Category) Info() CategoryInfo {
	if c < 0 || c >= categoryCount {
		return CategoryInfo{}
	}
	return categoryInfos[c]
}

func (c Category) String() string {
	return c.Info().Key
}

// CategoryFromKey resolves a stable key back to its category.
func CategoryFromKey(key string) (Category, bool) {
	for _, c := range Categories {
		if c.Info().Key == key {
			return c, true
		}
	}
	return 0, false
}
