package engine

import "sync/atomic"

// reentrancyLatch is the process-wide re-entry lock. Exactly one external-call
// sequence may hold it; a second state-mutating entry while it is held fails
// with ErrReentrant rather than blocking.
type reentrancyLatch struct {
	held atomic.Bool
}

func (l *reentrancyLatch) acquire() error {
	if !l.held.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	return nil
}

// release must run on every exit path; callers defer it immediately after a
// successful acquire.
func (l *reentrancyLatch) release() {
	l.held.Store(false)
}
