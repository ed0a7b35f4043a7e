// internal/app/system/uistate/uistate.go
package uistate

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long an untouched entry survives.
const DefaultTTL = 30 * time.Minute

// Store keeps per-session UI objects (list controllers, upload progress)
// keyed by "<session>/<name>". Entries idle longer than the TTL are evicted
// on the next access and handed to onEvict.
type Store[V any] struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]*entry[V]
	onEvict func(key string, v V)
}

type entry[V any] struct {
	v       V
	touched time.Time
}

// New creates a Store. onEvict may be nil.
func New[V any](clock clockwork.Clock, ttl time.Duration, onEvict func(key string, v V)) *Store[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[V]{clock: clock, ttl: ttl, entries: make(map[string]*entry[V]), onEvict: onEvict}
}

// Key joins a session id and a name.
func Key(session, name string) string { return session + "/" + name }

// GetOrCreate returns the entry for key, building it with create on first
// use. create runs under the store lock and must not call back into it.
func (s *Store[V]) GetOrCreate(key string, create func() V) V {
	s.mu.Lock()
	evicted := s.sweepLocked()
	e, ok := s.entries[key]
	if !ok {
		e = &entry[V]{v: create()}
		s.entries[key] = e
	}
	e.touched = s.clock.Now()
	v := e.v
	s.mu.Unlock()

	s.evict(evicted)
	return v
}

// Get returns the entry for key without creating it.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	e.touched = s.clock.Now()
	return e.v, true
}

// DropSession evicts every entry belonging to session.
func (s *Store[V]) DropSession(session string) {
	prefix := session + "/"
	s.mu.Lock()
	var gone []keyed[V]
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			gone = append(gone, keyed[V]{k, e.v})
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
	s.evict(gone)
}

// Len returns the number of live entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type keyed[V any] struct {
	key string
	v   V
}

func (s *Store[V]) sweepLocked() []keyed[V] {
	cutoff := s.clock.Now().Add(-s.ttl)
	var gone []keyed[V]
	for k, e := range s.entries {
		if e.touched.Before(cutoff) {
			gone = append(gone, keyed[V]{k, e.v})
			delete(s.entries, k)
		}
	}
	return gone
}

func (s *Store[V]) evict(gone []keyed[V]) {
	if s.onEvict == nil {
		return
	}
	for _, g := range gone {
		s.onEvict(g.key, g.v)
	}
}
