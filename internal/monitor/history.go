// Package monitor is the presentation layer over the pipeline: an
// in-memory session history ring with statistics, chart and plot
// rendering, and the embedded dashboard page. History lives only for the
// process; readings are never persisted.
package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/dyno.report/internal/dyno"
)

// DefaultCapacity matches the on-screen buffer of the original live
// plotter: at the sensor's ~20 Hz cadence this is a bit over a minute of
// history, enough to chart a full pull on the roller.
const DefaultCapacity = 1500

// HistoryPoint is one recorded reading with its liveness at record time.
type HistoryPoint struct {
	Time    time.Time    `json:"time"`
	Reading dyno.Reading `json:"reading"`
	Stalled bool         `json:"stalled"`
}

// History is a bounded ring of recorded readings for the current session.
// A session starts at construction or on Reset and is identified by a
// UUID so clients can detect resets.
type History struct {
	mu        sync.RWMutex
	capacity  int
	points    []HistoryPoint
	head      int
	count     int
	sessionID string
	started   time.Time
}

// NewHistory creates an empty history ring. A non-positive capacity uses
// DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		capacity:  capacity,
		points:    make([]HistoryPoint, capacity),
		sessionID: uuid.NewString(),
		started:   time.Now(),
	}
}

// Record appends a point, evicting the oldest when the ring is full.
func (h *History) Record(p HistoryPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.points[h.head] = p
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Points returns the recorded points oldest first.
func (h *History) Points() []HistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryPoint, 0, h.count)
	start := h.head - h.count
	if start < 0 {
		start += h.capacity
	}
	for i := 0; i < h.count; i++ {
		out = append(out, h.points[(start+i)%h.capacity])
	}
	return out
}

// Len returns the number of recorded points.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// SessionID returns the identifier of the current session.
func (h *History) SessionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionID
}

// Started returns when the current session began.
func (h *History) Started() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

// Reset clears the ring and starts a new session. Returns the new
// session ID.
func (h *History) Reset() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.count = 0
	h.sessionID = uuid.NewString()
	h.started = time.Now()
	return h.sessionID
}
