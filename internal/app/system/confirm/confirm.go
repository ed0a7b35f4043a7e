// internal/app/system/confirm/confirm.go
package confirm

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotOpen is returned when Confirm is called with no dialog open.
	ErrNotOpen = errors.New("confirm: dialog not open")
	// ErrAlreadyFired is returned for a second confirmation in the same cycle.
	ErrAlreadyFired = errors.New("confirm: action already fired")
	// ErrStale is returned when a confirmation names a cycle that is no
	// longer current.
	ErrStale = errors.New("confirm: stale dialog")
)

// State is a snapshot for rendering.
type State struct {
	Open    bool
	Busy    bool
	Cycle   uint64
	Message string
	Item    string
}

// Dialog gates one destructive action per open/close cycle.
type Dialog struct {
	mu      sync.Mutex
	open    bool
	busy    bool
	fired   bool
	cycle   uint64
	message string
	item    string
	onClose func()
}

// New returns a closed dialog. onClose runs every time the dialog closes.
func New(onClose func()) *Dialog {
	return &Dialog{onClose: onClose}
}

// Open starts a new cycle and returns its number. Opening while busy is
// refused and returns the current cycle.
func (d *Dialog) Open(message, item string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return d.cycle
	}
	d.cycle++
	d.open = true
	d.fired = false
	d.message = message
	d.item = item
	return d.cycle
}

// State returns the current snapshot.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Open: d.open, Busy: d.busy, Cycle: d.cycle, Message: d.message, Item: d.item}
}

// Confirm runs fn at most once for the given cycle. A cycle of 0 means the
// current one. The busy flag is set before fn starts, and the dialog closes
// when fn returns whatever its result. fn's error is returned unchanged;
// reporting it is the caller's job.
func (d *Dialog) Confirm(ctx context.Context, cycle uint64, fn func(context.Context) error) error {
	d.mu.Lock()
	switch {
	case !d.open:
		d.mu.Unlock()
		return ErrNotOpen
	case cycle != 0 && cycle != d.cycle:
		d.mu.Unlock()
		return ErrStale
	case d.busy || d.fired:
		d.mu.Unlock()
		return ErrAlreadyFired
	}
	d.busy = true
	d.fired = true
	mine := d.cycle
	d.mu.Unlock()

	defer d.finish(mine)
	return fn(ctx)
}

func (d *Dialog) finish(cycle uint64) {
	d.mu.Lock()
	if d.cycle != cycle {
		d.mu.Unlock()
		return
	}
	d.busy = false
	d.open = false
	cb := d.onClose
	d.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Cancel closes the dialog without firing. It is refused while the action
// is running, because both buttons are disabled then.
func (d *Dialog) Cancel() bool {
	d.mu.Lock()
	if !d.open || d.busy {
		d.mu.Unlock()
		return false
	}
	d.open = false
	cb := d.onClose
	d.mu.Unlock()
	if cb != nil {
		cb()
	}
	return true
}
