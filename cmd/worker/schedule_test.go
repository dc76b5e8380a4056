package main

import (
	"testing"
	"time"
)

// TestUntilNextRun verifies until next run behavior.
func TestUntilNextRun(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)

	if got := untilNextRun(now, "12:00"); got != 2*time.Hour {
		t.Fatalf("expected 2h until the same-day run, got %v", got)
	}
	if got := untilNextRun(now, "09:30"); got != 23*time.Hour+30*time.Minute {
		t.Fatalf("expected next-day run, got %v", got)
	}
	if got := untilNextRun(now, "10:00"); got != 24*time.Hour {
		t.Fatalf("the exact run minute rolls to tomorrow, got %v", got)
	}
	if got := untilNextRun(now, "not-a-time"); got != 24*time.Hour {
		t.Fatalf("malformed schedule should fall back to 24h, got %v", got)
	}
}
