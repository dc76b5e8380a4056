package parse

import (
	"strings"
	"testing"
	"time"
)

// TestSlugifyAliases verifies slugify aliases behavior.
func TestSlugifyAliases(t *testing.T) {
	cases := map[string]string{
		"Pune":            "pune",
		"Bangalore":       "bengaluru",
		"Bombay":          "mumbai",
		"New Delhi":       "new-delhi",
		"  Navi Mumbai  ": "navi-mumbai",
		"Calcutta":        "kolkata",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

// TestApplyTemplate verifies apply template behavior.
func TestApplyTemplate(t *testing.T) {
	got := ApplyTemplate("/explore/movies-{citySlug}", "pune")
	if got != "/explore/movies-pune" {
		t.Fatalf("unexpected path: %q", got)
	}
}

// TestNormalizeSourceIDCapsLength verifies normalize source i d caps length behavior.
func TestNormalizeSourceIDCapsLength(t *testing.T) {
	if got := NormalizeSourceID("  abc  "); got != "abc" {
		t.Fatalf("expected trimmed id, got %q", got)
	}
	if got := NormalizeSourceID(""); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	long := strings.Repeat("x", SourceIDMaxLen+1)
	digest := NormalizeSourceID(long)
	if len(digest) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", digest)
	}
	if digest != NormalizeSourceID(long) {
		t.Fatalf("digest is not stable")
	}
}

// TestResolveCityName verifies resolve city name behavior.
func TestResolveCityName(t *testing.T) {
	cityMap := map[string]string{"411001": "Pune"}
	if got := ResolveCityName("Mumbai", "411001", cityMap); got != "Mumbai" {
		t.Fatalf("explicit name should win, got %q", got)
	}
	if got := ResolveCityName("", "411001", cityMap); got != "Pune" {
		t.Fatalf("postal map fallback failed, got %q", got)
	}
	if got := ResolveCityName("", "999999", cityMap); got != "" {
		t.Fatalf("unknown pincode should yield empty, got %q", got)
	}
}

// TestParseInstantMachineFormats verifies parse instant machine formats behavior.
func TestParseInstantMachineFormats(t *testing.T) {
	loc := time.UTC
	got := ParseInstant("2026-03-11T18:30:00Z", loc)
	if got == nil {
		t.Fatalf("expected RFC3339 to parse")
	}
	if got.Hour() != 18 || got.Minute() != 30 {
		t.Fatalf("unexpected instant: %v", got)
	}

	got = ParseInstant("2026-03-11", loc)
	if got == nil {
		t.Fatalf("expected bare date to parse")
	}
	if !got.Equal(time.Date(2026, time.March, 11, 0, 0, 0, 0, loc)) {
		t.Fatalf("bare date should resolve to midnight, got %v", got)
	}
}

// TestParseInstantHumanFormats verifies parse instant human formats behavior.
func TestParseInstantHumanFormats(t *testing.T) {
	loc := time.UTC
	got := ParseInstant("Sat, 21 Dec, 7:30 PM", loc)
	if got == nil {
		t.Fatalf("expected human format to parse")
	}
	if got.Month() != time.December || got.Day() != 21 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 19 || got.Minute() != 30 {
		t.Fatalf("unexpected time: %v", got)
	}
	if got.Year() != time.Now().In(loc).Year() {
		t.Fatalf("missing year should default to current year, got %d", got.Year())
	}

	got = ParseInstant("Sat, 21 Dec, 7:30 pm", loc)
	if got == nil {
		t.Fatalf("expected lowercase meridiem to parse")
	}
	if got.Hour() != 19 || got.Minute() != 30 {
		t.Fatalf("unexpected lowercase meridiem time: %v", got)
	}

	got = ParseInstant("14 Feb, 2026", loc)
	if got == nil {
		t.Fatalf("expected dated format to parse")
	}
	if got.Year() != 2026 || got.Hour() != 19 {
		t.Fatalf("unexpected instant: %v", got)
	}

	if ParseInstant("next weekend probably", loc) != nil {
		t.Fatalf("junk should not parse")
	}
	if ParseInstant("", loc) != nil {
		t.Fatalf("empty should not parse")
	}
}

// TestParseClockTime verifies parse clock time behavior.
func TestParseClockTime(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, time.March, 11, 0, 0, 0, 0, loc)

	got := ParseClockTime("18:00", day, loc)
	if got == nil || got.Hour() != 18 || got.Day() != 11 {
		t.Fatalf("unexpected anchored time: %v", got)
	}
	got = ParseClockTime("9:15 PM", day, loc)
	if got == nil || got.Hour() != 21 || got.Minute() != 15 {
		t.Fatalf("unexpected anchored time: %v", got)
	}
	got = ParseClockTime("6:30 pm", day, loc)
	if got == nil || got.Hour() != 18 || got.Minute() != 30 {
		t.Fatalf("lowercase meridiem should parse, got %v", got)
	}
	if ParseClockTime("soon", day, loc) != nil {
		t.Fatalf("junk should not parse")
	}
}
