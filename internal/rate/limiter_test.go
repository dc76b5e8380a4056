package rate

import (
	"testing"
	"time"
)

// TestWindowLimiter verifies window limiter behavior.
func TestWindowLimiter(t *testing.T) {
	l := NewWindowLimiter(2, time.Minute)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("first two calls should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third call within the window should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are limited independently")
	}
}
