package monitoring

import (
	"sync"
	"time"
)

// RateLimiter throttles a log line that can fire once per sample, such as
// malformed serial frames arriving in a burst. One line passes per interval;
// suppressed repeats are counted and reported on the next line through.
type RateLimiter struct {
	mu         sync.Mutex
	interval   time.Duration
	last       time.Time
	suppressed int

	// now is swappable for tests.
	now func() time.Time
}

// NewRateLimiter returns a limiter that lets one line through per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval, now: time.Now}
}

// Logf forwards to the package logger if the interval has elapsed since the
// last line, otherwise it counts the message as suppressed. When a line does
// go through after suppression, the suppressed count is appended to it.
func (r *RateLimiter) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		r.suppressed++
		r.mu.Unlock()
		return
	}
	n := r.suppressed
	r.suppressed = 0
	r.last = now
	r.mu.Unlock()

	if n > 0 {
		format += " (%d similar suppressed)"
		v = append(v, n)
	}
	Logf(format, v...)
}

// Suppressed returns the count of messages held back since the last line
// that went through.
func (r *RateLimiter) Suppressed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppressed
}
