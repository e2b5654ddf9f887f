package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DurationConstraint bounds a workout's length in minutes. Nil means unbounded.
type DurationConstraint struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// IsZero reports whether neither bound is set.
func (c DurationConstraint) IsZero() bool {
	return c.Min == nil && c.Max == nil
}

func (c DurationConstraint) String() string {
	switch {
	case c.Min != nil && c.Max != nil:
		return fmt.Sprintf("between %d and %d minutes", *c.Min, *c.Max)
	case c.Max != nil:
		return fmt.Sprintf("at most %d minutes", *c.Max)
	case c.Min != nil:
		return fmt.Sprintf("at least %d minutes", *c.Min)
	default:
		return "any duration"
	}
}

const minuteUnit = `\s*(?:minutes?|mins?|m)\b`

var (
	rangePattern      = regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|to)\s*(\d+)` + minuteUnit)
	betweenPattern    = regexp.MustCompile(`(?i)\bbetween\s+(\d+)(?:` + minuteUnit + `)?\s+and\s+(\d+)` + minuteUnit)
	upperBoundPattern = regexp.MustCompile(`(?i)(?:\bunder|\bless than|\bno more than|\bmax(?:imum)?|\bup to|\bat most|<)\s*(\d+)`)
	lowerBoundPattern = regexp.MustCompile(`(?i)(\bover|\bmore than|\bmin(?:imum)?|\bat least|>)\s*(\d+)`)
	bareNumberPattern = regexp.MustCompile(`(?i)(\d+)` + minuteUnit)
	dayRefPattern     = regexp.MustCompile(`(?i)\bday\s*#?\d+\b`)
)

var (
	shorterKeywords = []string{"shorter", "less time", "quick", "faster", "shorten"}
	longerKeywords  = []string{"longer", "more time", "extended", "extend"}
)

const (
	relativeStep   = 5
	minimumMinutes = 5
)

// ParseDurationRequest turns a chat message into a duration constraint. Day
// references ("day 5") are ignored. The first matching rule wins: a range, an
// upper bound, a lower bound, a bare "N mins" (read as an upper bound), then
// relative words measured against the current duration. Numbers that do not
// fit an int are skipped.
func ParseDurationRequest(message string, current *int) DurationConstraint {
	message = dayRefPattern.ReplaceAllString(message, " ")

	for _, p := range []*regexp.Regexp{rangePattern, betweenPattern} {
		if m := p.FindStringSubmatch(message); m != nil {
			if c, ok := rangeConstraint(m[1], m[2]); ok {
				return c
			}
		}
	}
	if m := upperBoundPattern.FindStringSubmatch(message); m != nil {
		if n, ok := minutes(m[1]); ok {
			return DurationConstraint{Max: &n}
		}
	}
	if n, ok := lowerBound(message); ok {
		return DurationConstraint{Min: &n}
	}
	if m := bareNumberPattern.FindStringSubmatch(message); m != nil {
		if n, ok := minutes(m[1]); ok {
			return DurationConstraint{Max: &n}
		}
	}

	lower := strings.ToLower(message)
	if containsAny(lower, shorterKeywords) {
		if current == nil {
			return DurationConstraint{}
		}
		return DurationConstraint{Max: intPtr(max(minimumMinutes, *current-relativeStep))}
	}
	if containsAny(lower, longerKeywords) {
		if current == nil {
			return DurationConstraint{}
		}
		return DurationConstraint{Min: intPtr(*current + relativeStep)}
	}
	return DurationConstraint{}
}

// lowerBound skips "min" when it is the unit of the number before it, as in
// "a 20 min 3 round circuit".
func lowerBound(message string) (int, bool) {
	for _, m := range lowerBoundPattern.FindAllStringSubmatchIndex(message, -1) {
		keyword := strings.ToLower(message[m[2]:m[3]])
		if strings.HasPrefix(keyword, "min") && followsNumber(message[:m[2]]) {
			continue
		}
		if n, ok := minutes(message[m[4]:m[5]]); ok {
			return n, true
		}
	}
	return 0, false
}

func followsNumber(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t")
	if prefix == "" {
		return false
	}
	last := prefix[len(prefix)-1]
	return last >= '0' && last <= '9'
}

func rangeConstraint(a, b string) (DurationConstraint, bool) {
	lo, ok := minutes(a)
	if !ok {
		return DurationConstraint{}, false
	}
	hi, ok := minutes(b)
	if !ok {
		return DurationConstraint{}, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return DurationConstraint{Min: &lo, Max: &hi}, true
}

func minutes(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func intPtr(n int) *int {
	return &n
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
