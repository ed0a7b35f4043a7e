// internal/app/store/oauthstate/memory.go
package oauthstate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps states in process memory. It serves single-instance
// deployments that run without MongoDB.
type MemoryStore struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	states map[string]State
}

// NewMemory creates a MemoryStore. A nil clock uses the real clock.
func NewMemory(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, states: make(map[string]State)}
}

func (m *MemoryStore) Save(_ context.Context, state, returnURL string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.states[state] = State{State: state, ReturnURL: returnURL, ExpiresAt: expiresAt, CreatedAt: m.clock.Now()}
	return nil
}

func (m *MemoryStore) Validate(_ context.Context, state string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[state]
	delete(m.states, state)
	if !ok || !m.clock.Now().Before(st.ExpiresAt) {
		return "", false, nil
	}
	return st.ReturnURL, true, nil
}

// Len reports how many states are pending.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (m *MemoryStore) sweepLocked() {
	now := m.clock.Now()
	for k, st := range m.states {
		if !now.Before(st.ExpiresAt) {
			delete(m.states, k)
		}
	}
}
