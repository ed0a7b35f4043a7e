// internal/app/system/uploader/progress.go
package uploader

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	progressStep     = 10
	progressCeiling  = 90
	progressComplete = 100
	progressTick     = 200 * time.Millisecond
)

// Progress is the user-visible state of one upload. It is reset when an
// upload starts, only ever increases while it runs, stays at or below 90
// until the backend confirms, and reaches 100 only on confirmed success.
type Progress struct {
	mu        sync.Mutex
	percent   int
	uploading bool
}

// Snapshot returns the current percent and whether an upload is running.
func (p *Progress) Snapshot() (percent int, uploading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent, p.uploading
}

func (p *Progress) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = 0
	p.uploading = true
}

func (p *Progress) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.uploading {
		return
	}
	p.percent += progressStep
	if p.percent > progressCeiling {
		p.percent = progressCeiling
	}
}

func (p *Progress) finish(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploading = false
	if ok {
		p.percent = progressComplete
	} else {
		p.percent = 0
	}
}

// simulate advances p every tick until stop is closed.
func simulate(clock clockwork.Clock, p *Progress, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := clock.NewTicker(progressTick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			p.advance()
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Registry: progress lookups by upload token                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Registry lets a polling request find the Progress of an upload running in
// another request. Entries are forgotten after ttl.
type Registry struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]*registryEntry
}

type registryEntry struct {
	p       *Progress
	touched time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock, ttl time.Duration) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Registry{clock: clock, ttl: ttl, entries: make(map[string]*registryEntry)}
}

// Track returns the Progress for token, creating it if needed.
func (r *Registry) Track(token string) *Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	e, ok := r.entries[token]
	if !ok {
		e = &registryEntry{p: &Progress{}}
		r.entries[token] = e
	}
	e.touched = r.clock.Now()
	return e.p
}

// Lookup returns the Progress for token if one is tracked.
func (r *Registry) Lookup(token string) (*Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[token]
	if !ok {
		return nil, false
	}
	return e.p, true
}

func (r *Registry) sweepLocked() {
	cutoff := r.clock.Now().Add(-r.ttl)
	for k, e := range r.entries {
		if e.touched.Before(cutoff) {
			delete(r.entries, k)
		}
	}
}
