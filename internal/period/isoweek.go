package period

import "time"

// WeeksInISOYear returns 52 or 53. December 28 always falls in the last ISO
// week of its year.
func WeeksInISOYear(year int) int {
	_, week := civil(year, time.December, 28).ISOWeek()
	return week
}

// ISOWeekStart returns the Monday of ISO week `week` in ISO year `year`.
// Week 1 is the week containing the year's first Thursday (equivalently,
// January 4). It reports false when the week does not exist in that year.
func ISOWeekStart(year, week int) (time.Time, bool) {
	if week < 1 || week > WeeksInISOYear(year) {
		return time.Time{}, false
	}
	jan4 := civil(year, time.January, 4)
	// Monday=0 .. Sunday=6
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, 7*(week-1)-offset), true
}
