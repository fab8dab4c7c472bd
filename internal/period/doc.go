// Package period turns spreadsheet column headers into IBP period identifiers.
//
// A header such as "Jan-26", "WK02 2025" or "2025-03-01" is resolved against a
// Granularity and rendered as a PERIODID:
//
//	period.Parse("Jan-26", period.Month)    // "2026-01-01"
//	period.Parse("WK02 2025", period.Week)  // "2025-W02"
//	period.Parse("WK02 2025", period.Day)   // "2025-01-06"
//	period.Parse("Region", period.Day)      // "Region"
//
// # Resolution
//
// Each label is tried against an ordered chain of strategies. The first one
// that yields a civil date wins:
//
//  1. CalendarDate: complete dates, month-first for numeric forms unless the
//     leading field exceeds 12
//  2. MonthYear: month and year without a day, taken as the 1st
//  3. BareYear: a four digit year, taken as January 1
//  4. ISOWeek: week number plus year, taken as the Monday of the ISO week
//
// When nothing matches, the trimmed label is returned unchanged. Parsing never
// fails and never panics; callers decide what to do with a label that did not
// resolve.
//
// # Two-digit years
//
// Two-digit years follow the Go layout convention: 69-99 map to 1969-1999 and
// 00-68 map to 2000-2068. The rule does not depend on the current date.
//
// # Concurrency
//
// All functions are pure and safe for concurrent use.
package period
