// internal/app/system/modal/modal.go
package modal

import "sync"

// Reason names how the user asked the modal to close.
type Reason string

const (
	ReasonEscape   Reason = "escape"
	ReasonBackdrop Reason = "backdrop"
	ReasonButton   Reason = "button"
)

// ParseReason maps a request value onto a Reason; unknown values count as
// the close button.
func ParseReason(s string) Reason {
	switch Reason(s) {
	case ReasonEscape, ReasonBackdrop:
		return Reason(s)
	}
	return ReasonButton
}

/*─────────────────────────────────────────────────────────────────────────────*
| ScrollLock                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// ScrollLock tracks which open shells want page scrolling suppressed. The
// page is locked while at least one holder remains.
type ScrollLock struct {
	mu      sync.Mutex
	next    uint64
	holders map[uint64]struct{}
}

func (l *ScrollLock) acquire() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holders == nil {
		l.holders = make(map[uint64]struct{})
	}
	l.next++
	l.holders[l.next] = struct{}{}
	return l.next
}

func (l *ScrollLock) release(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holders, id)
}

// Locked reports whether any shell currently holds the lock.
func (l *ScrollLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders) > 0
}

/*─────────────────────────────────────────────────────────────────────────────*
| Shell                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Shell is a presentational container whose visibility the parent owns.
// Every dismissal path goes to the same onClose callback; the shell never
// closes itself.
type Shell struct {
	mu        sync.Mutex
	lock      *ScrollLock
	onClose   func(Reason)
	open      bool
	holdID    uint64
	unmounted bool
}

// New creates a closed shell. onClose may be nil.
func New(lock *ScrollLock, onClose func(Reason)) *Shell {
	if lock == nil {
		lock = &ScrollLock{}
	}
	return &Shell{lock: lock, onClose: onClose}
}

// SetOpen is the parent's control. Opening takes the scroll lock and
// closing releases it.
func (s *Shell) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted || open == s.open {
		return
	}
	s.open = open
	if open {
		s.holdID = s.lock.acquire()
		return
	}
	s.lock.release(s.holdID)
	s.holdID = 0
}

// IsOpen reports the parent-controlled state.
func (s *Shell) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Dismiss forwards a close request to the parent. Requests on a closed or
// unmounted shell are ignored.
func (s *Shell) Dismiss(reason Reason) {
	s.mu.Lock()
	fire := s.open && !s.unmounted
	cb := s.onClose
	s.mu.Unlock()
	if fire && cb != nil {
		cb(reason)
	}
}

// Unmount releases the scroll lock even if the parent never closed the
// shell. The shell is inert afterwards.
func (s *Shell) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.lock.release(s.holdID)
	}
	s.open = false
	s.holdID = 0
	s.unmounted = true
}
