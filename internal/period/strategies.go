package period

import (
	"regexp"
	"strconv"
	"time"
)

// Strategy names reported in Result.Strategy.
const (
	StrategyCalendarDate = "calendar_date"
	StrategyMonthYear    = "month_year"
	StrategyBareYear     = "bare_year"
	StrategyISOWeek      = "iso_week"
)

// Strategy is one named attempt at reading a civil date out of a label.
// Match receives a normalised label and reports whether it recognised it.
type Strategy struct {
	Name  string
	Match func(label string) (time.Time, bool)
}

// chain is evaluated in order; generic date forms take priority over the
// week pattern.
var chain = []Strategy{
	{Name: StrategyCalendarDate, Match: CalendarDate},
	{Name: StrategyMonthYear, Match: MonthYear},
	{Name: StrategyBareYear, Match: BareYear},
	{Name: StrategyISOWeek, Match: ISOWeek},
}

// Strategies returns the resolution chain in evaluation order.
func Strategies() []Strategy {
	out := make([]Strategy, len(chain))
	copy(out, chain)
	return out
}

// Numeric forms are month-first.
var calendarLayouts = []string{
	// ISO and year-first
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"20060102",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,

	// month-first numeric
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"1/2/06",
	"1-2-06",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",

	// month names
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"2 Jan 06",
	"2/Jan/2006",
	"2-January-2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan-2-2006",
	"Jan-2-06",
	"January 2, 2006",
	"January 2 2006",
	"2006-Jan-2",
	"2006 Jan 2",
}

// Day-first numeric forms, tried only when the leading field cannot be a
// month.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

// Layouts without a day; time.Parse leaves the day at the 1st.
var monthYearLayouts = []string{
	"Jan-06",
	"Jan 06",
	"Jan/06",
	"Jan-2006",
	"Jan 2006",
	"Jan/2006",
	"January-2006",
	"January 2006",
	"January 06",
	"2006-Jan",
	"2006 Jan",
	"2006-1",
	"2006/1",
	"1/2006",
	"1-2006",
	"1.2006",
}

var (
	bareYearRe = regexp.MustCompile(`^[1-9][0-9]{3}$`)

	leadingFieldRe = regexp.MustCompile(`^([0-9]{1,2})[/.-]`)

	// "Sept" is common in headers but not a Go month abbreviation.
	septRe = regexp.MustCompile(`(?i)\bsept\b`)

	// [wk|week|w] <week> <year>; the week number must not be glued to a
	// preceding letter or digit.
	weekYearRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:(?:week|wk|w)[\s_-]*)?([0-9]{1,2})[\s_-]*(20[0-9]{2})(?:$|[^0-9])`)

	// <year> (wk|week|w) <week>, e.g. 2025-W02.
	yearWeekRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(20[0-9]{2})[\s_-]*(?:week|wk|w)[\s_-]*([0-9]{1,2})(?:$|[^0-9])`)
)

// CalendarDate recognises complete dates such as "2025-03-01", "3/1/2025",
// "01-Jan-26" or "Jan 1, 2026". Any time of day is dropped. Numeric dates
// are month-first; "13/01/2025" falls back to day-first because 13 cannot
// be a month.
func CalendarDate(label string) (time.Time, bool) {
	label = septRe.ReplaceAllString(label, "Sep")
	if t, ok := parseLayouts(label, calendarLayouts); ok {
		return t, true
	}
	if m := leadingFieldRe.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 12 {
			return parseLayouts(label, dayFirstLayouts)
		}
	}
	return time.Time{}, false
}

// MonthYear recognises month and year without a day, such as "Jan-26",
// "January 2026" or "2026-01", and returns the 1st of that month.
func MonthYear(label string) (time.Time, bool) {
	return parseLayouts(septRe.ReplaceAllString(label, "Sep"), monthYearLayouts)
}

// BareYear recognises a four digit year and returns January 1 of it.
func BareYear(label string) (time.Time, bool) {
	if !bareYearRe.MatchString(label) {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(label)
	if err != nil {
		return time.Time{}, false
	}
	return civil(y, time.January, 1), true
}

// ISOWeek recognises week labels such as "WK02 2025", "Week-53-2026",
// "w1_2025" or "2025-W02" and returns the Monday of that ISO week. The year
// must start with "20" and the week must exist in that ISO year.
func ISOWeek(label string) (time.Time, bool) {
	if m := weekYearRe.FindStringSubmatch(label); m != nil {
		if t, ok := weekStart(m[2], m[1]); ok {
			return t, true
		}
	}
	if m := yearWeekRe.FindStringSubmatch(label); m != nil {
		if t, ok := weekStart(m[1], m[2]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func weekStart(yearText, weekText string) (time.Time, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	week, err := strconv.Atoi(weekText)
	if err != nil {
		return time.Time{}, false
	}
	return ISOWeekStart(year, week)
}

func parseLayouts(label string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, label); err == nil {
			return civil(t.Year(), t.Month(), t.Day()), true
		}
	}
	return time.Time{}, false
}

// civil builds a midnight UTC time. All arithmetic in this package is on
// civil dates, so UTC is only a carrier.
func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
