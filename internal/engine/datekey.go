package engine

import "time"

// DateKey is the (year, month, day) identity of a calendar date in the
// Gregorian calendar. It is the deduplication key for unique-date counting:
// two rows with equal keys describe the same day regardless of source.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf normalizes any timestamp to its calendar-date key, dropping the
// time-of-day and keeping the timestamp's own location. Birthdays and
// holidays are local calendar facts, not absolute instants.
func KeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// Less reports whether k falls strictly before other in calendar order.
func (k DateKey) Less(other DateKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// Date materializes the key back into a midnight timestamp in loc.
func (k DateKey) Date(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// ISOWeek returns the ISO-8601 week-numbering year and week of the key.
func (k DateKey) ISOWeek() (year, week int) {
	return k.Date(time.UTC).ISOWeek()
}

// ComposeDate builds a date from components and reports whether the
// combination is valid for that year. Go's time.Date silently normalizes
// overflow (Feb 30 becomes Mar 2), so validity is checked by comparing the
// result against the requested components. Invalid compositions are how both
// malformed rules and Feb 29 birthdays in non-leap years get skipped.
func ComposeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
