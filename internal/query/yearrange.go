package query

import (
	"strconv"
	"strings"
)

// YearInterval is the parsed form of a catalog year-range string.
type YearInterval struct {
	Start int
	End   int
	// Open marks "<year>-UP" / "<year>+" ranges with no upper bound.
	Open bool
	// Wraps marks a two-bound range whose start is after its end; membership
	// is then start-or-later OR end-or-earlier.
	Wraps bool
}

// Contains reports whether year falls inside the interval.
func (iv YearInterval) Contains(year int) bool {
	switch {
	case iv.Open:
		return year >= iv.Start
	case iv.Wraps:
		return year >= iv.Start || year <= iv.End
	default:
		return year >= iv.Start && year <= iv.End
	}
}

// ParseYearRange parses catalog notations such as "1998-2002", "98-02",
// "2015-UP", "99+" and "2004". ok is false for anything unparseable.
func ParseYearRange(raw string) (YearInterval, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return YearInterval{}, false
	}

	openEnded := strings.Contains(s, "UP") || strings.Contains(s, "+")

	switch {
	case strings.Contains(s, "-") && !openEnded:
		parts := strings.SplitN(s, "-", 2)
		start, ok := expandBound(parts[0])
		if !ok {
			return YearInterval{}, false
		}
		end, ok := expandBound(parts[1])
		if !ok {
			return YearInterval{}, false
		}
		return YearInterval{Start: start, End: end, Wraps: start > end}, true

	case openEnded:
		trimmed := strings.NewReplacer("UP", "", "+", "", "-", "", " ", "").Replace(s)
		start, ok := expandBound(trimmed)
		if !ok {
			return YearInterval{}, false
		}
		return YearInterval{Start: start, Open: true}, true

	default:
		year, ok := expandBound(s)
		if !ok {
			return YearInterval{}, false
		}
		return YearInterval{Start: year, End: year}, true
	}
}

// IsYearInRange reports whether year is covered by the catalog range text.
// Malformed ranges never match.
func IsYearInRange(raw string, year int) bool {
	iv, ok := ParseYearRange(raw)
	if !ok {
		return false
	}
	return iv.Contains(year)
}

// expandBound accepts a two- or four-digit year. Two-digit values above 50
// belong to the 1900s, the rest to the 2000s.
func expandBound(tok string) (int, bool) {
	tok = strings.TrimSpace(tok)
	if !isDigits(tok) {
		return 0, false
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	switch len(tok) {
	case 2:
		if v > 50 {
			return 1900 + v, true
		}
		return 2000 + v, true
	case 4:
		return v, true
	default:
		return 0, false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
