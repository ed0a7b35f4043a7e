// internal/app/system/alerts/alerts.go
package alerts

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Severity selects the visual style of an alert.
type Severity string

const (
	Success Severity = "success"
	Danger  Severity = "danger"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// DefaultDuration is how long an alert stays up unless told otherwise.
const DefaultDuration = 5 * time.Second

// Alert is one transient notification.
type Alert struct {
	ID        uint64
	Message   string
	Severity  Severity
	CreatedAt time.Time
	Duration  time.Duration
}

// Notifier is what components depend on to report outcomes. It is injected
// rather than reached through a global so tests can substitute a recorder.
type Notifier interface {
	Notify(message string, severity Severity)
}

// Queue holds the visible alerts for one viewer in insertion order. Each
// alert is removed after its duration or when dismissed, whichever is first.
type Queue struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	duration time.Duration
	nextID   uint64
	items    []Alert
	timers   map[uint64]clockwork.Timer
	closed   bool
}

// NewQueue creates a Queue. A nil clock uses the real clock; a non-positive
// duration uses DefaultDuration.
func NewQueue(clock clockwork.Clock, duration time.Duration) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Queue{
		clock:    clock,
		duration: duration,
		timers:   make(map[uint64]clockwork.Timer),
	}
}

// Notify appends an alert with the queue's default duration.
func (q *Queue) Notify(message string, severity Severity) {
	q.NotifyFor(message, severity, q.duration)
}

// NotifyFor appends an alert that expires after d. Empty messages are ignored.
func (q *Queue) NotifyFor(message string, severity Severity, d time.Duration) (Alert, bool) {
	if message == "" {
		return Alert{}, false
	}
	if severity == "" {
		severity = Info
	}
	if d <= 0 {
		d = q.duration
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Alert{}, false
	}
	q.nextID++
	a := Alert{
		ID:        q.nextID,
		Message:   message,
		Severity:  severity,
		CreatedAt: q.clock.Now(),
		Duration:  d,
	}
	q.items = append(q.items, a)
	q.mu.Unlock()

	// The timer is armed outside the lock; its callback takes the lock.
	id := a.ID
	t := q.clock.AfterFunc(d, func() { q.Dismiss(id) })

	q.mu.Lock()
	if q.closed || !q.hasLocked(id) {
		q.mu.Unlock()
		t.Stop()
		return a, true
	}
	q.timers[id] = t
	q.mu.Unlock()
	return a, true
}

// Dismiss removes the alert with id. It reports whether anything was removed.
func (q *Queue) Dismiss(id uint64) bool {
	q.mu.Lock()
	t := q.timers[id]
	delete(q.timers, id)
	removed := false
	for i, a := range q.items {
		if a.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	return removed
}

func (q *Queue) hasLocked(id uint64) bool {
	for _, a := range q.items {
		if a.ID == id {
			return true
		}
	}
	return false
}

// List returns the visible alerts, oldest first.
func (q *Queue) List() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Alert(nil), q.items...)
}

// Len returns the number of visible alerts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops every pending timer and drops all alerts.
func (q *Queue) Close() {
	q.mu.Lock()
	timers := q.timers
	q.timers = make(map[uint64]clockwork.Timer)
	q.items = nil
	q.closed = true
	q.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}
