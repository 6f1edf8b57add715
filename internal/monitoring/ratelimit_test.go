package monitoring

import (
	"strings"
	"testing"
	"time"
)

// TestRateLimiterPassesFirstLine verifies the first message always goes
// through immediately.
func TestRateLimiterPassesFirstLine(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	r := NewRateLimiter(time.Second)
	r.Logf("bad frame: %q", "x,y")

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
}

// TestRateLimiterSuppressesBurst verifies messages inside the interval are
// counted instead of logged, and the count is reported on the next line
// that passes.
func TestRateLimiterSuppressesBurst(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(time.Second)
	r.now = func() time.Time { return now }

	r.Logf("bad frame")
	for i := 0; i < 5; i++ {
		r.Logf("bad frame")
	}
	if len(lines) != 1 {
		t.Fatalf("expected burst to be suppressed, got %d lines", len(lines))
	}
	if got := r.Suppressed(); got != 5 {
		t.Errorf("Suppressed() = %d, want 5", got)
	}

	// After the interval elapses the next line carries the count.
	now = now.Add(2 * time.Second)
	r.Logf("bad frame")
	if len(lines) != 2 {
		t.Fatalf("expected line after interval, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "suppressed") {
		t.Errorf("expected suppressed count in %q", lines[1])
	}
	if got := r.Suppressed(); got != 0 {
		t.Errorf("Suppressed() after flush = %d, want 0", got)
	}
}
