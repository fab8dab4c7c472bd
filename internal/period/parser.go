package period

import (
	"fmt"
	"strings"
	"time"
)

// Result describes how a single header label was resolved.
type Result struct {
	// Label is the trimmed input label.
	Label string
	// Token is the PERIODID, or Label when nothing matched.
	Token string
	// Date is the civil date the token was derived from; zero on passthrough.
	Date time.Time
	// Strategy names the step that matched; empty on passthrough.
	Strategy string
}

// Parsed reports whether a strategy recognised the label.
func (r Result) Parsed() bool {
	return r.Strategy != ""
}

// Parse converts a header label into a PERIODID for the given granularity.
// Labels that cannot be read as a date, or an unsupported granularity, yield
// the trimmed label itself.
func Parse(label string, g Granularity) string {
	return Resolve(label, g).Token
}

// Resolve is Parse with the details of the match.
func Resolve(label string, g Granularity) Result {
	trimmed := strings.TrimSpace(label)
	res := Result{Label: trimmed, Token: trimmed}
	if !g.Valid() || trimmed == "" {
		return res
	}

	normalized := normalize(trimmed)
	for _, s := range chain {
		t, ok := s.Match(normalized)
		if !ok {
			continue
		}
		res.Token = Format(t, g)
		res.Date = t
		res.Strategy = s.Name
		return res
	}
	return res
}

// Format renders a civil date as a PERIODID. DAY keeps the date, MONTH and
// YEAR truncate to the first day of the period and WEEK renders the ISO week
// as YYYY-Www using the ISO week-numbering year.
func Format(t time.Time, g Granularity) string {
	switch g {
	case Week:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Month:
		return civil(t.Year(), t.Month(), 1).Format(time.DateOnly)
	case Year:
		return civil(t.Year(), time.January, 1).Format(time.DateOnly)
	default:
		return civil(t.Year(), t.Month(), t.Day()).Format(time.DateOnly)
	}
}

// normalize collapses runs of whitespace so layouts only need single spaces.
func normalize(label string) string {
	return strings.Join(strings.Fields(label), " ")
}
