package precis

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when an orchestrated operation is refused because
// another one is already in flight.
var ErrBusy = errors.New("precis: operation already in progress")

// opLock is the single-flight gate for orchestrated operations. Acquisition
// refuses instead of queuing, so a caller holding the lock can never be
// blocked by another, and release is unconditional.
type opLock struct {
	held atomic.Bool
}

func (l *opLock) TryAcquire() bool { return l.held.CompareAndSwap(false, true) }

func (l *opLock) Release() { l.held.Store(false) }

func (l *opLock) Held() bool { return l.held.Load() }
