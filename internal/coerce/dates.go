package coerce

import (
	"strconv"
	"strings"
	"time"
)

// Named output formats for date rendering. Anything else falls back to
// ISO-8601.
var outputLayouts = map[string]string{
	"YYYY-MM-DD":          "2006-01-02",
	"MM/DD/YYYY":          "01/02/2006",
	"DD/MM/YYYY":          "02/01/2006",
	"YYYY-MM-DD HH:mm:ss": "2006-01-02 15:04:05",
	"DD-MM-YYYY HH:mm":    "02-01-2006 15:04",
	"MM-DD-YYYY HH:mm":    "01-02-2006 15:04",
}

// genericLayouts are tried in order for strings that match none of the
// structured patterns.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	time.RFC1123,
	time.RFC822,
}

// FormatDate renders an epoch-ms instant using a named output format, in UTC.
func FormatDate(ms int64, outputFormat string) string {
	t := time.UnixMilli(ms).UTC()
	if layout, ok := outputLayouts[outputFormat]; ok {
		return t.Format(layout)
	}
	return t.Format(time.RFC3339)
}

// ParseDate parses a date string into epoch milliseconds. Accepted patterns:
// YYYY-MM-DD, DD-MM-YYYY, MM/DD/YYYY, each with optional HH:mm[:ss]; two-digit
// years below 100 are offset by +2000. Ambiguous strings fall back to the
// generic layouts. Out-of-range components normalize (Feb 30 becomes Mar 2).
func ParseDate(str string) (int64, bool) {
	return parseDate(str, false)
}

// ParseDateStrict is ParseDate but rejects component normalization: the
// reconstructed date must reproduce the input fields exactly.
func ParseDateStrict(str string) (int64, bool) {
	return parseDate(str, true)
}

func parseDate(str string, strict bool) (int64, bool) {
	s := strings.TrimSpace(str)
	if s == "" {
		return 0, false
	}

	if c, ok := splitComponents(s); ok {
		t := time.Date(c.year, time.Month(c.month), c.day, c.hour, c.min, c.sec, 0, time.UTC)
		if strict {
			if t.Year() != c.year || int(t.Month()) != c.month || t.Day() != c.day ||
				t.Hour() != c.hour || t.Minute() != c.min || t.Second() != c.sec {
				return 0, false
			}
		}
		return t.UnixMilli(), true
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), true
		}
	}
	return 0, false
}

type dateComponents struct {
	year, month, day, hour, min, sec int
}

// splitComponents recognizes the structured patterns: a date token delimited
// by '-' or '/', optionally followed by a time token. A leading 4-digit field
// reads year-first; otherwise dashes read day-first and slashes month-first.
func splitComponents(s string) (dateComponents, bool) {
	var c dateComponents

	datePart := s
	timePart := ""
	if i := strings.IndexAny(s, " T"); i > 0 {
		datePart, timePart = s[:i], s[i+1:]
	}

	var sep string
	switch {
	case strings.Count(datePart, "-") == 2:
		sep = "-"
	case strings.Count(datePart, "/") == 2:
		sep = "/"
	default:
		return c, false
	}

	fields := strings.Split(datePart, sep)
	nums := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return c, false
		}
		nums[i] = n
	}

	switch {
	case len(fields[0]) == 4:
		c.year, c.month, c.day = nums[0], nums[1], nums[2]
	case sep == "-":
		c.day, c.month, c.year = nums[0], nums[1], nums[2]
	default:
		c.month, c.day, c.year = nums[0], nums[1], nums[2]
	}
	if c.year < 100 {
		c.year += 2000
	}
	if c.month < 1 || c.month > 12 || c.day < 1 || c.day > 31 {
		return c, false
	}

	if timePart != "" {
		tf := strings.Split(timePart, ":")
		if len(tf) < 2 || len(tf) > 3 {
			return c, false
		}
		var err error
		if c.hour, err = strconv.Atoi(tf[0]); err != nil {
			return c, false
		}
		if c.min, err = strconv.Atoi(tf[1]); err != nil {
			return c, false
		}
		if len(tf) == 3 {
			sec := tf[2]
			if i := strings.IndexAny(sec, "Zz+"); i >= 0 {
				sec = sec[:i]
			}
			if c.sec, err = strconv.Atoi(sec); err != nil {
				return c, false
			}
		}
		if c.hour > 23 || c.min > 59 || c.sec > 59 {
			return c, false
		}
	}
	return c, true
}

// ParseNamedFormat parses against one of the named output formats. Unknown
// names fall back to the general parser. The Go layout parser is inherently
// strict, so the strict flag only changes fallback behavior.
func ParseNamedFormat(s, name string, strict bool) (int64, bool) {
	layout, ok := outputLayouts[name]
	if !ok {
		return parseDate(s, strict)
	}
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.UTC().UnixMilli(), true
}

// LooksLikeDate reports whether a string resembles any supported date form.
// Used by sort-key projection to decide between date and numeric handling.
func LooksLikeDate(s string) bool {
	if _, ok := splitComponents(strings.TrimSpace(s)); ok {
		return true
	}
	for _, layout := range genericLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return true
		}
	}
	return false
}
