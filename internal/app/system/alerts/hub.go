// internal/app/system/alerts/hub.go
package alerts

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Hub keeps one Queue per browser session so alerts raised while handling
// one request are shown by the listener polling from the same browser.
type Hub struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	duration time.Duration
	idle     time.Duration
	queues   map[string]*hubEntry
}

type hubEntry struct {
	q       *Queue
	touched time.Time
}

// NewHub creates a Hub. Empty queues untouched for idle are released.
func NewHub(clock clockwork.Clock, duration, idle time.Duration) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Hub{
		clock:    clock,
		duration: duration,
		idle:     idle,
		queues:   make(map[string]*hubEntry),
	}
}

// For returns the queue for sessionID, creating it on first use.
func (h *Hub) For(sessionID string) *Queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked()
	e, ok := h.queues[sessionID]
	if !ok {
		e = &hubEntry{q: NewQueue(h.clock, h.duration)}
		h.queues[sessionID] = e
	}
	e.touched = h.clock.Now()
	return e.q
}

// DropSession releases the queue for sessionID (on sign-out).
func (h *Hub) DropSession(sessionID string) {
	h.mu.Lock()
	e, ok := h.queues[sessionID]
	delete(h.queues, sessionID)
	h.mu.Unlock()
	if ok {
		e.q.Close()
	}
}

// Size returns the number of live queues.
func (h *Hub) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queues)
}

func (h *Hub) sweepLocked() {
	cutoff := h.clock.Now().Add(-h.idle)
	for id, e := range h.queues {
		if e.touched.Before(cutoff) && e.q.Len() == 0 {
			e.q.Close()
			delete(h.queues, id)
		}
	}
}

// Recorder is a Notifier that only remembers what it was told.
type Recorder struct {
	mu     sync.Mutex
	Alerts []Alert
}

func (r *Recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, Alert{ID: uint64(len(r.Alerts) + 1), Message: message, Severity: severity})
}

// Last returns the most recent alert, if any.
func (r *Recorder) Last() (Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Alerts) == 0 {
		return Alert{}, false
	}
	return r.Alerts[len(r.Alerts)-1], true
}

// Count returns how many alerts were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Alerts)
}
