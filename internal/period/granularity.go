package period

import (
	"errors"
	"fmt"
	"strings"
)

// Granularity is the bucket size a header date is normalised to.
type Granularity string

const (
	Day   Granularity = "DAY"
	Week  Granularity = "WEEK"
	Month Granularity = "MONTH"
	Year  Granularity = "YEAR"
)

// ErrUnknownGranularity is returned by ParseGranularity for unsupported values.
var ErrUnknownGranularity = errors.New("unknown granularity")

// Granularities returns the supported granularities in display order.
func Granularities() []Granularity {
	return []Granularity{Day, Week, Month, Year}
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

func (g Granularity) String() string {
	return string(g)
}

// ParseGranularity parses a granularity name case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q (want one of DAY, WEEK, MONTH, YEAR)", ErrUnknownGranularity, s)
	}
	return g, nil
}
