// Package parse holds the pure text and time normalization helpers shared
// by every scrape provider.
package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// SourceIDMaxLen bounds normalized source identifiers. Anything longer is
// replaced by a sha256 hex digest of the raw value.
const SourceIDMaxLen = 120

// cityAliases maps historical city names to the slugs providers use today.
var cityAliases = map[string]string{
	"bangalore": "bengaluru",
	"bombay":    "mumbai",
	"calcutta":  "kolkata",
	"madras":    "chennai",
	"poona":     "pune",
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a city or title into a URL slug: non-alphanumeric runs
// collapse to single hyphens and known historical city names map to their
// current form.
func Slugify(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if alias, ok := cityAliases[s]; ok {
		return alias
	}
	return s
}

// ApplyTemplate substitutes {citySlug} placeholders in a provider path
// template.
func ApplyTemplate(template, citySlug string) string {
	return strings.ReplaceAll(template, "{citySlug}", citySlug)
}

// NormalizeSourceID trims a raw provider identifier and caps its length.
// Over-long values degrade to a stable sha256 hex digest so natural keys
// stay bounded without colliding.
func NormalizeSourceID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if len(s) <= SourceIDMaxLen {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ResolveCityName prefers the explicitly requested name; otherwise it falls
// back to the configured postal-code map. Returns "" when neither knows.
func ResolveCityName(cityName, postalCode string, postalCodeCityMap map[string]string) string {
	if name := strings.TrimSpace(cityName); name != "" {
		return name
	}
	if name, ok := postalCodeCityMap[strings.TrimSpace(postalCode)]; ok {
		return name
	}
	return ""
}

var (
	weekdayPrefix = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+`)
	meridiemRe    = regexp.MustCompile(`(?i)\b(am|pm)\b`)
)

// upperMeridiem uppercases am/pm markers so the 12-hour layouts match
// regardless of the case the site emits.
func upperMeridiem(s string) string {
	return meridiemRe.ReplaceAllStringFunc(s, strings.ToUpper)
}

type layoutSpec struct {
	layout  string
	naive   bool
	hasYear bool
	evening bool
}

// Layouts are tried in order; the first parse wins. Machine formats come
// before human listing formats. Human layouts without a time component get
// the evening default; a bare ISO date stays at midnight.
var instantLayouts = []layoutSpec{
	{layout: time.RFC3339, hasYear: true},
	{layout: "2006-01-02T15:04:05Z07:00", hasYear: true},
	{layout: "2006-01-02T15:04:05", naive: true, hasYear: true},
	{layout: "2006-01-02T15:04", naive: true, hasYear: true},
	{layout: "2006-01-02", naive: true, hasYear: true},
	{layout: "2 Jan, 2006, 3:04 PM", naive: true, hasYear: true},
	{layout: "2 Jan 2006, 3:04 PM", naive: true, hasYear: true},
	{layout: "2 Jan, 2006", naive: true, hasYear: true, evening: true},
	{layout: "2 Jan 2006", naive: true, hasYear: true, evening: true},
	{layout: "2 Jan, 3:04 PM", naive: true},
	{layout: "2 Jan 3:04 PM", naive: true},
	{layout: "2 Jan", naive: true, evening: true},
}

// ParseInstant turns a provider timestamp string into a concrete instant in
// loc. It accepts RFC3339, naive ISO date-times, bare dates (midnight), and
// the human listing formats such as "Sat, 21 Dec, 7:30 PM". A missing year
// defaults to the current year in loc; a human format without a time
// defaults to 19:00. Returns nil when nothing matches.
func ParseInstant(value string, loc *time.Location) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	s = weekdayPrefix.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = upperMeridiem(s)

	now := time.Now().In(loc)
	for _, spec := range instantLayouts {
		var t time.Time
		var err error
		if spec.naive {
			t, err = time.ParseInLocation(spec.layout, s, loc)
		} else {
			t, err = time.Parse(spec.layout, s)
		}
		if err != nil {
			continue
		}
		if !spec.hasYear {
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		}
		if spec.evening {
			t = time.Date(t.Year(), t.Month(), t.Day(), 19, 0, 0, 0, loc)
		}
		t = t.In(loc)
		return &t
	}
	return nil
}

// ParseClockTime parses bare clock strings such as "18:00", "6:00 PM" or
// "9:15:00 pm" and anchors them on day in loc. Returns nil on junk.
func ParseClockTime(value string, day time.Time, loc *time.Location) *time.Time {
	s := strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
	if s == "" {
		return nil
	}
	s = upperMeridiem(s)
	layouts := []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		anchored := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		return &anchored
	}
	return nil
}
